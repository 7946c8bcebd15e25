package record

import "ringstore.io/platform/internal/operation"

// PlanKind is the closed set of write-plan shapes ring 5 can receive
// (spec §3, SqlOperation).
type PlanKind string

const (
	PlanInsert     PlanKind = "Insert"
	PlanUpdate     PlanKind = "Update"
	PlanSoftDelete PlanKind = "SoftDelete"
	PlanRevert     PlanKind = "Revert"
	PlanNoOp       PlanKind = "NoOp"
)

// WritePlan is the tagged variant ring 5 translates into SQL. Only
// Fields relevant to Kind are populated; e.g. SoftDelete and Revert
// carry no Fields.
type WritePlan struct {
	Kind   PlanKind
	Table  string
	ID     string
	Fields map[string]any
}

// ToWritePlan derives the write plan for the record's current state
// against table. Update/Delete/Revert require an id (MissingId
// otherwise); an Update whose diff is empty returns NoOp.
func (r *StatefulRecord) ToWritePlan(table string) (WritePlan, error) {
	switch r.state {
	case operation.StateCreate:
		changes := r.CalculateChanges()
		return WritePlan{Kind: PlanInsert, Table: table, Fields: changes.Added}, nil

	case operation.StateUpdate:
		id, ok := r.ID()
		if !ok {
			return WritePlan{}, missingIDError()
		}
		changes := r.CalculateChanges()
		if !changes.HasChanges {
			return WritePlan{Kind: PlanNoOp, Table: table, ID: id}, nil
		}
		fields := make(map[string]any, len(changes.Added)+len(changes.ModifiedFields))
		for k, v := range changes.Added {
			fields[k] = v
		}
		for k, v := range changes.ModifiedFields {
			fields[k] = v
		}
		return WritePlan{Kind: PlanUpdate, Table: table, ID: id, Fields: fields}, nil

	case operation.StateDelete:
		id, ok := r.ID()
		if !ok {
			return WritePlan{}, missingIDError()
		}
		return WritePlan{Kind: PlanSoftDelete, Table: table, ID: id}, nil

	case operation.StateRevert:
		id, ok := r.ID()
		if !ok {
			return WritePlan{}, missingIDError()
		}
		return WritePlan{Kind: PlanRevert, Table: table, ID: id}, nil

	default:
		return WritePlan{Kind: PlanNoOp, Table: table}, nil
	}
}
