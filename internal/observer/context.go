package observer

import (
	"time"

	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/filter"
	"ringstore.io/platform/internal/identity"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/operation"
	"ringstore.io/platform/internal/record"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/schema"
	"ringstore.io/platform/internal/store"
)

// Context is the mutable per-invocation state rings 0-6 observe and
// mutate (spec §4.3). Rings 7-9 instead receive an immutable
// Snapshot, produced by Freeze once ring 6 completes.
type Context struct {
	Operation operation.Operation
	Schema    schema.Definition
	Records   []*record.StatefulRecord

	// Filter is only populated for Select; rings 0-4 may rewrite it
	// (e.g. ring 2's ACL injection, ring 4's QuerySafety cap).
	Filter *filter.Data

	// Handle is the invocation's write transaction (mutations) or
	// pooled read handle (Select). Ring 0's preload and ring 5's write
	// share it so they observe one consistent view (spec §5). Only
	// built-in observers that reach the store (RecordPreloader,
	// SqlExecutor) use it.
	Handle store.Handle

	// Identity resolves the calling principal's access set for
	// QueryAccessControl (ring 2). Injected through the context rather
	// than closed over by the observer, per spec §9: "do not call
	// global session accessors inside observers."
	Identity identity.Provider

	// Clock is the injectable time source for TimestampEnricher and
	// any other observer that needs "now" (spec §9: deterministic
	// tests, no global time calls).
	Clock clock.Clock

	Bag *Bag

	currentRing ring.Ring
	errors      pkgerrors.List
	warnings    pkgerrors.List

	PipelineStart time.Time
}

// NewContext constructs the context a pipeline invocation threads
// through rings 0-6.
func NewContext(op operation.Operation, schemaDef schema.Definition, records []*record.StatefulRecord, f *filter.Data, start time.Time) *Context {
	return &Context{
		Operation:     op,
		Schema:        schemaDef,
		Records:       records,
		Filter:        f,
		Bag:           NewBag(),
		currentRing:   ring.DataPrep,
		PipelineStart: start,
	}
}

// CurrentRing returns the ring currently executing.
func (c *Context) CurrentRing() ring.Ring { return c.currentRing }

// AdvanceRing moves the context's ring marker forward. The pipeline
// engine calls this at each ring boundary; it never regresses, per
// the invariant that rings execute in strict numeric order.
func (c *Context) AdvanceRing(r ring.Ring) { c.currentRing = r }

// AddError accumulates a pipeline error against the current ring.
func (c *Context) AddError(err *pkgerrors.PipelineError) { c.errors = append(c.errors, err) }

// AddWarning accumulates a non-fatal observation.
func (c *Context) AddWarning(err *pkgerrors.PipelineError) { c.warnings = append(c.warnings, err) }

// Errors returns the errors accumulated so far in this ring (reset
// by the engine between rings once evaluated).
func (c *Context) Errors() pkgerrors.List { return c.errors }

// Warnings returns every warning accumulated across the invocation.
func (c *Context) Warnings() pkgerrors.List { return c.warnings }

// HasErrors reports whether any error has been accumulated in the
// current ring.
func (c *Context) HasErrors() bool { return len(c.errors) > 0 }

// ResetRingErrors clears the per-ring error accumulator. Called by the
// engine after evaluating a ring's errors (spec §4.3 step 2c) so the
// next ring starts clean.
func (c *Context) ResetRingErrors() { c.errors = nil }

// Snapshot is the view rings 7-9 receive. Snapshot has no mutators of
// its own, but each element of Records still has StatefulRecord's
// methods, mutators included (see Freeze).
type Snapshot struct {
	Operation     operation.Operation
	Schema        schema.Definition
	Records       []record.StatefulRecord
	PipelineStart time.Time
	bag           *Bag
}

// Bag exposes the typed metadata bag for read access.
func (s Snapshot) Bag() *Bag { return s.bag }

// NewSnapshot builds a Snapshot directly, for callers that reconstruct
// one outside of a live Context (e.g. a durable async executor
// replaying a dispatched job). bag starts empty: a bag populated
// during the synchronous phase does not survive serialization, so a
// replayed snapshot never carries sync-ring bag contents.
func NewSnapshot(op operation.Operation, schemaDef schema.Definition, records []record.StatefulRecord, start time.Time) Snapshot {
	return Snapshot{
		Operation:     op,
		Schema:        schemaDef,
		Records:       records,
		PipelineStart: start,
		bag:           NewBag(),
	}
}

// Freeze produces a Snapshot from a Context once the synchronous phase
// has committed. Records are copied by value into a new slice; the copy
// is shallow, so each copy shares its field and metadata maps with the
// live record. Read through OriginalSnapshot/ModifiedSnapshot is
// isolated, but a mutator called on a snapshot record (SetField,
// RemoveField, SeedOriginal) writes through to the shared state. The
// bag is shared as well.
func (c *Context) Freeze() Snapshot {
	records := make([]record.StatefulRecord, len(c.Records))
	for i, r := range c.Records {
		records[i] = *r
	}
	return Snapshot{
		Operation:     c.Operation,
		Schema:        c.Schema,
		Records:       records,
		PipelineStart: c.PipelineStart,
		bag:           c.Bag,
	}
}
