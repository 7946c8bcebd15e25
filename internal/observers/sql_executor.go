package observers

import (
	"context"
	"fmt"

	"ringstore.io/platform/internal/filter"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/record"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/store"
)

// SqlExecutor is the sole ring 5 observer: it translates each record's
// write plan (or, on Select, the compiled filter) into SQL against the
// invocation's Handle and materializes the result back onto the
// record (spec §4.4). Its own errors are always fatal to the
// invocation, independent of StopsOnError (spec §4.3 step 2c).
type SqlExecutor struct {
	observer.Base
	compiler *filter.Compiler
}

// NewSqlExecutor builds the ring 5 write/read observer.
func NewSqlExecutor() SqlExecutor {
	return SqlExecutor{
		Base:     observer.Base{ObserverName: "SqlExecutor", ObserverRing: ring.Database},
		compiler: filter.NewCompiler(),
	}
}

func (o SqlExecutor) Run(ctx context.Context, oc *observer.Context) error {
	if oc.Operation == operation.Select {
		return o.runSelect(ctx, oc)
	}
	for _, rec := range oc.Records {
		if err := o.runWrite(ctx, oc, rec); err != nil {
			return err
		}
	}
	return nil
}

func (o SqlExecutor) runSelect(ctx context.Context, oc *observer.Context) error {
	var d filter.Data
	if oc.Filter != nil {
		d = *oc.Filter
	}
	result, err := o.compiler.CompileSelect(oc.Schema.Table, d, 1)
	if err != nil {
		return pkgerrors.Filter(pkgerrors.CodeInvalidTable, "could not compile select")
	}
	rows, err := oc.Handle.Query(ctx, result.SQL, result.Params)
	if err != nil {
		return pkgerrors.Store(pkgerrors.CodeStoreFailure, "select query failed", err)
	}
	records := make([]*record.StatefulRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, record.FromRow(row, oc.PipelineStart))
	}
	oc.Records = records
	return nil
}

func (o SqlExecutor) runWrite(ctx context.Context, oc *observer.Context, rec *record.StatefulRecord) error {
	plan, err := rec.ToWritePlan(oc.Schema.Table)
	if err != nil {
		return err
	}

	switch plan.Kind {
	case record.PlanInsert:
		result, err := o.compiler.CompileInsertPlan(plan.Table, plan.Fields, 1)
		if err != nil {
			return pkgerrors.Filter(pkgerrors.CodeInvalidOperatorData, "could not compile insert")
		}
		rows, err := oc.Handle.ExecuteReturning(ctx, result.SQL+" RETURNING *", result.Params)
		if err != nil {
			return pkgerrors.Store(pkgerrors.CodeStoreFailure, "insert failed", err)
		}
		return materialize(rec, rows)

	case record.PlanUpdate:
		d := filter.Data{Where: filter.FieldCond{Column: "id", Op: filter.OpEq, Operand: plan.ID}}
		result, err := o.compiler.CompileModifyPlan(plan.Table, plan.Fields, d, 1)
		if err != nil {
			return pkgerrors.Filter(pkgerrors.CodeInvalidOperatorData, "could not compile update")
		}
		rows, err := oc.Handle.ExecuteReturning(ctx, result.SQL+" RETURNING *", result.Params)
		if err != nil {
			return pkgerrors.Store(pkgerrors.CodeStoreFailure, "update failed", err)
		}
		return materialize(rec, rows)

	case record.PlanSoftDelete:
		d := filter.Data{Where: filter.FieldCond{Column: "id", Op: filter.OpEq, Operand: plan.ID}}
		result, err := o.compiler.CompileModifyPlan(plan.Table, map[string]any{"trashed_at": oc.Clock.Now()}, d, 1)
		if err != nil {
			return pkgerrors.Filter(pkgerrors.CodeInvalidOperatorData, "could not compile soft delete")
		}
		rows, err := oc.Handle.ExecuteReturning(ctx, result.SQL+" RETURNING *", result.Params)
		if err != nil {
			return pkgerrors.Store(pkgerrors.CodeStoreFailure, "soft delete failed", err)
		}
		return materialize(rec, rows)

	case record.PlanRevert:
		d := filter.Data{
			Where:          filter.FieldCond{Column: "id", Op: filter.OpEq, Operand: plan.ID},
			IncludeTrashed: true,
		}
		result, err := o.compiler.CompileModifyPlan(plan.Table, map[string]any{"trashed_at": nil, "deleted_at": nil}, d, 1)
		if err != nil {
			return pkgerrors.Filter(pkgerrors.CodeInvalidOperatorData, "could not compile revert")
		}
		rows, err := oc.Handle.ExecuteReturning(ctx, result.SQL+" RETURNING *", result.Params)
		if err != nil {
			return pkgerrors.Store(pkgerrors.CodeStoreFailure, "revert failed", err)
		}
		return materialize(rec, rows)

	case record.PlanNoOp:
		return nil

	default:
		return pkgerrors.System(pkgerrors.CodeRingOutOfOrder, fmt.Sprintf("unhandled write plan kind %q", plan.Kind))
	}
}

// materialize seeds both original and modified from the single row a
// RETURNING * clause produces. It leaves the record's state as the
// mutation's own Create/Update/Delete/Revert tag: NoChange/Enriched
// are Select-result states only (spec §3), so a caller can still tell
// which mutation a returned record committed via rec.State().
func materialize(rec *record.StatefulRecord, rows []store.Row) error {
	if len(rows) == 0 {
		return pkgerrors.Store(pkgerrors.CodeStoreFailure, "write did not return a row", nil)
	}
	row := rows[0]
	rec.SeedOriginal(row)
	for k, v := range row {
		rec.SetField(k, v, "SqlExecutor")
	}
	if id, ok := row["id"].(string); ok {
		rec.SetID(id)
	}
	return nil
}
