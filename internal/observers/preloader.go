// Package observers implements the minimum built-in observer set named
// by spec §4.4: one observer per ring 0, 1, 2 (x2), 4 (x2), and 5.
package observers

import (
	"context"
	"fmt"

	"ringstore.io/platform/internal/filter"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/ring"
)

// RecordPreloader runs in ring 0 on Update/Delete/Revert. It issues one
// batched read keyed by every pending record's id, including
// soft-deleted rows, and seeds each record's original snapshot from
// it. An id with no matching row produces a ValidationError.
type RecordPreloader struct {
	observer.Base
}

// NewRecordPreloader builds the ring 0 preload observer.
func NewRecordPreloader() RecordPreloader {
	return RecordPreloader{Base: observer.Base{
		ObserverName: "RecordPreloader",
		ObserverRing: ring.DataPrep,
		Operations:   []operation.Operation{operation.Update, operation.Delete, operation.Revert},
	}}
}

func (o RecordPreloader) Run(ctx context.Context, oc *observer.Context) error {
	ids := make([]string, 0, len(oc.Records))
	byID := make(map[string]int, len(oc.Records))
	for i, rec := range oc.Records {
		id, ok := rec.ID()
		if !ok {
			return pkgerrors.Validation(pkgerrors.CodeMissingID, "id", "id is required to preload this record")
		}
		ids = append(ids, id)
		byID[id] = i
	}
	if len(ids) == 0 {
		return nil
	}

	in := make([]any, len(ids))
	for i, id := range ids {
		in[i] = id
	}
	d := filter.Data{
		Where:          filter.FieldCond{Column: "id", Op: filter.OpIn, Operand: in},
		IncludeTrashed: true,
	}

	compiler := filter.NewCompiler()
	result, err := compiler.CompileSelect(oc.Schema.Table, d, 1)
	if err != nil {
		return pkgerrors.Filter(pkgerrors.CodeInvalidTable, "could not build preload query")
	}

	rows, err := oc.Handle.Query(ctx, result.SQL, result.Params)
	if err != nil {
		return pkgerrors.Store(pkgerrors.CodeStoreFailure, "preload query failed", err)
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		id, _ := row["id"].(string)
		idx, ok := byID[id]
		if !ok {
			continue
		}
		oc.Records[idx].SeedOriginal(row)
		seen[id] = true
	}

	for _, id := range ids {
		if !seen[id] {
			return pkgerrors.Validation(pkgerrors.CodeRecordNotFound, "id", fmt.Sprintf("record %q does not exist", id))
		}
	}
	return nil
}
