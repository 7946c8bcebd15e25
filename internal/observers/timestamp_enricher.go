package observers

import (
	"context"

	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	"ringstore.io/platform/internal/ring"
)

// TimestampEnricher runs in ring 4 on Create/Update. It sets
// created_at and updated_at on Create, and updated_at on Update only
// when the record's diff has changes (spec §4.4) — a pure Update that
// ends up a no-op must not bump updated_at.
type TimestampEnricher struct {
	observer.Base
}

// NewTimestampEnricher builds the ring 4 timestamp observer.
func NewTimestampEnricher() TimestampEnricher {
	return TimestampEnricher{Base: observer.Base{
		ObserverName: "TimestampEnricher",
		ObserverRing: ring.Enrich,
		Operations:   []operation.Operation{operation.Create, operation.Update},
	}}
}

func (o TimestampEnricher) Run(ctx context.Context, oc *observer.Context) error {
	for _, rec := range oc.Records {
		now := oc.Clock.Now()
		switch rec.State() {
		case operation.StateCreate:
			rec.SetField("created_at", now, o.Name())
			rec.SetField("updated_at", now, o.Name())
		case operation.StateUpdate:
			if rec.CalculateChanges().HasChanges {
				rec.SetField("updated_at", now, o.Name())
			}
		}
	}
	return nil
}
