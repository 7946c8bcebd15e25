package observer

import (
	"context"
	"time"

	"ringstore.io/platform/internal/operation"
	"ringstore.io/platform/internal/ring"
)

// DefaultTimeout is applied to an observer that does not declare its
// own (spec §4.3: "A timeout (default 5 s)").
const DefaultTimeout = 5 * time.Second

// Descriptor is the part of the Observer contract uniform across
// every ring: identity, targeting, and scheduling.
type Descriptor interface {
	Name() string
	Ring() ring.Ring
	AppliesToOperation(op operation.Operation) bool
	AppliesToSchema(schemaName string) bool
	Timeout() time.Duration
	// Priority orders peers within the same ring; smaller runs
	// earlier, ties broken by registration order.
	Priority() int
}

// SyncObserver is an observer attached to one of rings 0-6. It
// receives the mutable Context and runs sequentially with its ring
// peers (spec §4.3: "never concurrently").
type SyncObserver interface {
	Descriptor
	Run(ctx context.Context, oc *Context) error
}

// AsyncObserver is an observer attached to one of rings 7-9. It
// receives a read-only Snapshot and its errors never propagate to the
// caller.
type AsyncObserver interface {
	Descriptor
	RunAsync(ctx context.Context, snap Snapshot) error
}

// Base provides the common Descriptor fields so built-in and
// application observers don't each hand-roll identical accessors.
// Embed it and override only what differs.
type Base struct {
	ObserverName string
	ObserverRing ring.Ring
	Operations   []operation.Operation
	Schemas      []string // nil/empty means "all schemas"
	ObserverTimeout time.Duration
	ObserverPriority int
}

func (b Base) Name() string    { return b.ObserverName }
func (b Base) Ring() ring.Ring { return b.ObserverRing }

func (b Base) AppliesToOperation(op operation.Operation) bool {
	if len(b.Operations) == 0 {
		return true
	}
	for _, o := range b.Operations {
		if o == op {
			return true
		}
	}
	return false
}

func (b Base) AppliesToSchema(schemaName string) bool {
	if len(b.Schemas) == 0 {
		return true
	}
	for _, s := range b.Schemas {
		if s == schemaName {
			return true
		}
	}
	return false
}

func (b Base) Timeout() time.Duration {
	if b.ObserverTimeout <= 0 {
		return DefaultTimeout
	}
	return b.ObserverTimeout
}

func (b Base) Priority() int { return b.ObserverPriority }
