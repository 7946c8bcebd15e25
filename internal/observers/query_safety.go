package observers

import (
	"context"

	"ringstore.io/platform/internal/filter"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	"ringstore.io/platform/internal/ring"
)

// QuerySafetyNote records the caps/defaults QuerySafety applied, for
// audit and performance-hint consumers.
type QuerySafetyNote struct {
	LimitCapped      bool
	DefaultOrderUsed bool
}

// QuerySafety runs in ring 4 on Select. It caps limit to a configured
// maximum, sets a deterministic default order when the caller supplied
// none, and annotates the invocation with what it changed (spec §4.4).
type QuerySafety struct {
	observer.Base
	DefaultLimit int
	MaxLimit     int
	DefaultOrder []filter.OrderClause
}

// NewQuerySafety builds the ring 4 safety-cap observer. defaultOrder is
// applied only when the caller's filter has none.
func NewQuerySafety(defaultLimit, maxLimit int, defaultOrder []filter.OrderClause) QuerySafety {
	return QuerySafety{
		Base: observer.Base{
			ObserverName: "QuerySafety",
			ObserverRing: ring.Enrich,
			Operations:   []operation.Operation{operation.Select},
		},
		DefaultLimit: defaultLimit,
		MaxLimit:     maxLimit,
		DefaultOrder: defaultOrder,
	}
}

func (o QuerySafety) Run(ctx context.Context, oc *observer.Context) error {
	if oc.Filter == nil {
		return nil
	}
	note := QuerySafetyNote{}

	switch {
	case oc.Filter.Limit == nil:
		limit := o.DefaultLimit
		oc.Filter.Limit = &limit
	case *oc.Filter.Limit > o.MaxLimit:
		capped := o.MaxLimit
		oc.Filter.Limit = &capped
		note.LimitCapped = true
	}

	if len(oc.Filter.Order) == 0 && len(o.DefaultOrder) > 0 {
		oc.Filter.Order = o.DefaultOrder
		note.DefaultOrderUsed = true
	}

	observer.Put(oc.Bag, note)
	return nil
}
