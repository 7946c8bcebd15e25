// Package pipeline implements the observer pipeline engine: ring
// resolution and ordering, per-observer timeouts, the stop-on-error
// rule below ring 5, transaction discipline around ring 5, and
// dispatch of rings 7-9 to a detached executor (spec §4.3, §5).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"ringstore.io/platform/internal/async"
	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/filter"
	"ringstore.io/platform/internal/identity"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/pkg/logger"
	"ringstore.io/platform/internal/record"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/schema"
	"ringstore.io/platform/internal/store"
)

// Engine runs one observer-pipeline invocation at a time, start to
// finish: opening the store handle, walking rings 0-6 in order,
// committing, and handing rings 7-9 to the async executor.
type Engine struct {
	registry *observer.Registry
	store    store.TenantStore
	identity identity.Provider
	clock    clock.Clock
	async    async.Executor

	enforceGlobalDeadline bool
	globalDeadline        time.Duration
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithGlobalDeadline makes the engine divide d across observers as
// they request their own timeout, first-come-first-served (spec §5).
// Once exhausted, the next observer starts with a zero budget and
// times out immediately.
func WithGlobalDeadline(d time.Duration) Option {
	return func(e *Engine) {
		e.enforceGlobalDeadline = true
		e.globalDeadline = d
	}
}

// New builds an Engine. registry must already be frozen.
func New(registry *observer.Registry, tenantStore store.TenantStore, identityProvider identity.Provider, clk clock.Clock, asyncExec async.Executor, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		store:    tenantStore,
		identity: identityProvider,
		clock:    clk,
		async:    asyncExec,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// budget tracks the global deadline as it is consumed
// observer-by-observer. Only ever touched from the single-threaded
// ring walk, so it needs no locking.
type budget struct {
	enabled   bool
	remaining time.Duration
}

func (b *budget) next(requested time.Duration) time.Duration {
	if !b.enabled {
		return requested
	}
	if b.remaining <= 0 {
		return 0
	}
	if requested > b.remaining {
		return b.remaining
	}
	return requested
}

func (b *budget) spend(d time.Duration) {
	if !b.enabled {
		return
	}
	b.remaining -= d
	if b.remaining < 0 {
		b.remaining = 0
	}
}

// ExecuteMutation runs a Create/Update/Delete/Revert invocation
// through the full ring sequence and returns the post-commit records.
func (e *Engine) ExecuteMutation(ctx context.Context, op operation.Operation, schemaDef schema.Definition, records []*record.StatefulRecord) ([]record.StatefulRecord, error) {
	if !op.IsMutation() {
		return nil, pkgerrors.System(pkgerrors.CodeRingOutOfOrder, fmt.Sprintf("ExecuteMutation called with non-mutating operation %s", op))
	}
	return e.run(ctx, op, schemaDef, records, nil)
}

// ExecuteSelect runs a Select invocation; ring 5 materializes rows
// into the returned records.
func (e *Engine) ExecuteSelect(ctx context.Context, schemaDef schema.Definition, f *filter.Data) ([]record.StatefulRecord, error) {
	return e.run(ctx, operation.Select, schemaDef, nil, f)
}

func (e *Engine) run(ctx context.Context, op operation.Operation, schemaDef schema.Definition, records []*record.StatefulRecord, f *filter.Data) ([]record.StatefulRecord, error) {
	start := e.clock.Now()

	var handle store.Handle
	var err error
	if op.IsMutation() {
		handle, err = e.store.Begin(ctx)
	} else {
		handle, err = e.store.ReadOnly(ctx)
	}
	if err != nil {
		return nil, err
	}

	oc := observer.NewContext(op, schemaDef, records, f, start)
	oc.Handle = handle
	oc.Identity = e.identity
	oc.Clock = e.clock

	bud := &budget{enabled: e.enforceGlobalDeadline, remaining: e.globalDeadline}

	var committed bool
	defer func() {
		if !committed {
			if rerr := handle.Rollback(ctx); rerr != nil {
				logger.Warn("rollback failed", zap.Error(rerr))
			}
		}
	}()

	// Walk every sync ring; runRing applies the baseline exclusion of
	// Business/PostDatabase for Select (spec §4.3 step 1), so only an
	// observer that opts into Select for those rings runs there.
	cancelledAfterDatabase := false
	for _, r := range ring.Sync {
		if r < ring.Database && ctx.Err() != nil {
			return nil, fmt.Errorf("pipeline cancelled before ring %s: %w", r, ctx.Err())
		}
		if r == ring.PostDatabase && ctx.Err() != nil {
			// Cancellation arriving during/after ring 5 aborts only
			// the remaining sync work (spec §4.3/§5): ring 5 has
			// committed-in-intent side effects already issued against
			// the handle, so the invocation still commits, but
			// PostDatabase and async dispatch are skipped.
			cancelledAfterDatabase = true
			break
		}

		oc.AdvanceRing(r)
		oc.ResetRingErrors()
		e.runRing(ctx, r, op, schemaDef.Name, oc, bud)

		switch {
		case r < ring.Database:
			if oc.HasErrors() {
				return nil, oc.Errors()
			}
		case r == ring.Database:
			if oc.HasErrors() {
				return nil, oc.Errors()
			}
			// Cancellation is suppressed from here on (spec §4.3):
			// ring 5 has committed-in-intent side effects already
			// issued against the handle.
		case r == ring.PostDatabase:
			for _, perr := range oc.Errors() {
				oc.AddWarning(perr)
			}
		}
	}

	if err := handle.Commit(ctx); err != nil {
		return nil, pkgerrors.Store(pkgerrors.CodeStoreFailure, "commit failed", err)
	}
	committed = true

	result := make([]record.StatefulRecord, len(oc.Records))
	for i, rec := range oc.Records {
		result[i] = *rec
	}

	if !cancelledAfterDatabase {
		e.dispatchAsync(op, oc)
	}

	return result, nil
}

func (e *Engine) runRing(ctx context.Context, r ring.Ring, op operation.Operation, schemaName string, oc *observer.Context, bud *budget) {
	// Rings outside ring.RelevantRings(op) run only observers that list
	// op explicitly; an observer applying to every mutation as well (no
	// operation list) does not count as listing it.
	excluded := !slices.Contains(ring.RelevantRings(op), r)
	for _, obs := range e.registry.SyncObservers(r) {
		if !obs.AppliesToOperation(op) || !obs.AppliesToSchema(schemaName) {
			continue
		}
		if excluded && obs.AppliesToOperation(operation.Create) && obs.AppliesToOperation(operation.Update) &&
			obs.AppliesToOperation(operation.Delete) && obs.AppliesToOperation(operation.Revert) {
			continue
		}

		timeout := bud.next(obs.Timeout())
		if timeout <= 0 {
			oc.AddError(pkgerrors.Timeout(pkgerrors.CodeObserverTimeout, fmt.Sprintf("observer %q: global deadline exhausted", obs.Name())))
			continue
		}

		runCtx, cancel := context.WithTimeout(ctx, timeout)
		runErr := obs.Run(runCtx, oc)
		cancel()
		// The observer's granted share is consumed whether or not it
		// uses all of it (first-come-first-served division).
		bud.spend(timeout)

		if runErr == nil {
			continue
		}

		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			oc.AddError(pkgerrors.Timeout(pkgerrors.CodeObserverTimeout, fmt.Sprintf("observer %q timed out after %s", obs.Name(), timeout)))
			continue
		}

		var pe *pkgerrors.PipelineError
		if errors.As(runErr, &pe) {
			oc.AddError(pe)
			continue
		}
		oc.AddError(pkgerrors.System(pkgerrors.CodeObserverFailure, fmt.Sprintf("observer %q: %v", obs.Name(), runErr)))
	}
}

// dispatchAsync hands rings 7-9 to the async executor using a
// read-only snapshot of the committed records. Errors here are logged
// by the executor, never returned to the caller (spec §4.3 step 5).
func (e *Engine) dispatchAsync(op operation.Operation, oc *observer.Context) {
	snap := oc.Freeze()
	for _, r := range ring.Async {
		observers := selectAsync(e.registry.AsyncObservers(r), op, oc.Schema.Name)
		if len(observers) == 0 {
			continue
		}
		if err := e.async.Dispatch(context.Background(), r, observers, snap); err != nil {
			logger.Error("async dispatch failed", zap.String("ring", r.String()), zap.Error(err))
		}
	}
}

func selectAsync(all []observer.AsyncObserver, op operation.Operation, schemaName string) []observer.AsyncObserver {
	out := make([]observer.AsyncObserver, 0, len(all))
	for _, obs := range all {
		if obs.AppliesToOperation(op) && obs.AppliesToSchema(schemaName) {
			out = append(out, obs)
		}
	}
	return out
}
