package observers

import (
	"context"

	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/ring"
)

// SoftDeleteGuard runs in ring 2 on Update/Delete. It rejects a record
// whose original.trashed_at is non-null: Revert is the only operation
// allowed to touch a trashed row (spec §4.4).
type SoftDeleteGuard struct {
	observer.Base
}

// NewSoftDeleteGuard builds the ring 2 trashed-row guard.
func NewSoftDeleteGuard() SoftDeleteGuard {
	return SoftDeleteGuard{Base: observer.Base{
		ObserverName: "SoftDeleteGuard",
		ObserverRing: ring.Security,
		Operations:   []operation.Operation{operation.Update, operation.Delete},
	}}
}

func (o SoftDeleteGuard) Run(ctx context.Context, oc *observer.Context) error {
	for _, rec := range oc.Records {
		trashedAt, ok := rec.Original("trashed_at")
		passed := !ok || trashedAt == nil
		rec.Metadata.SecurityChecks[o.Name()] = securityCheck(passed, "record is soft-deleted; only Revert may touch it")
		if !passed {
			oc.AddError(pkgerrors.Security(pkgerrors.CodeRecordTrashed, "record is soft-deleted; only Revert may touch it"))
		}
	}
	return nil
}
