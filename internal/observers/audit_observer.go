package observers

import (
	"context"
	"fmt"

	"ringstore.io/platform/internal/governance/audit"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/store"
)

// AuditObserver is the ring 7 built-in observer: it appends one audit
// row per record the invocation touched, through its own transaction
// against the tenant store (the sync-phase Handle is already closed by
// the time rings 7-9 run).
type AuditObserver struct {
	observer.Base
	store  store.TenantStore
	logger *audit.Logger
}

// NewAuditObserver builds the ring 7 audit-logging observer.
func NewAuditObserver(tenantStore store.TenantStore, logger *audit.Logger) AuditObserver {
	return AuditObserver{
		Base:   observer.Base{ObserverName: "AuditObserver", ObserverRing: ring.Audit},
		store:  tenantStore,
		logger: logger,
	}
}

func (o AuditObserver) RunAsync(ctx context.Context, snap observer.Snapshot) error {
	h, err := o.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open audit transaction: %w", err)
	}
	var committed bool
	defer func() {
		if !committed {
			_ = h.Rollback(ctx)
		}
	}()

	for i := range snap.Records {
		rec := &snap.Records[i]
		id, _ := rec.ID()
		changes := rec.CalculateChanges()
		detail := map[string]any{
			"added":    changes.Added,
			"modified": changes.ModifiedFields,
			"removed":  changes.Removed,
		}
		if err := o.logger.LogRingDispatch(ctx, h, snap.Schema.Name, string(snap.Operation), id, o.Ring().String(), o.Name(), detail); err != nil {
			return err
		}
	}

	if err := h.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit transaction: %w", err)
	}
	committed = true
	return nil
}
