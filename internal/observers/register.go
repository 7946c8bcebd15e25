package observers

import (
	"fmt"

	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/config"
	"ringstore.io/platform/internal/governance/audit"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/store"
)

// RegisterBuiltins registers the minimum built-in observer set named
// by spec §4.4 onto reg. Call before reg.Freeze(); application
// observers may be registered alongside these in either order.
func RegisterBuiltins(reg *observer.Registry, cfg config.PipelineConfig) error {
	builtins := []observer.SyncObserver{
		NewRecordPreloader(),
		NewSchemaValidator(),
		NewQueryAccessControl(),
		NewSoftDeleteGuard(),
		NewQuerySafety(cfg.DefaultSelectLimit, cfg.MaxSelectLimit, nil),
		NewTimestampEnricher(),
		NewSqlExecutor(),
	}
	for _, o := range builtins {
		if err := reg.RegisterSync(o); err != nil {
			return fmt.Errorf("register built-in observer %q: %w", o.Name(), err)
		}
	}
	return nil
}

// RegisterBuiltinAsyncObservers registers the built-in rings 7-9
// observer set. Separate from RegisterBuiltins because it needs a
// TenantStore to open its own handle per dispatch (rings 7-9 never
// receive the invocation's live Handle, per spec §4.3).
func RegisterBuiltinAsyncObservers(reg *observer.Registry, tenantStore store.TenantStore, clk clock.Clock) error {
	builtins := []observer.AsyncObserver{
		NewAuditObserver(tenantStore, audit.NewLogger(clk)),
	}
	for _, o := range builtins {
		if err := reg.RegisterAsync(o); err != nil {
			return fmt.Errorf("register built-in async observer %q: %w", o.Name(), err)
		}
	}
	return nil
}
