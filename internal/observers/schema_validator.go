package observers

import (
	"context"
	"fmt"

	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/record"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/schema"
)

// SchemaValidator runs in ring 1 on Create/Update. For Create it
// validates every payload-owned column against the schema definition;
// for Update it validates only the union of added and modified fields,
// so untouched columns never re-trigger validation (spec §4.4).
type SchemaValidator struct {
	observer.Base
}

// NewSchemaValidator builds the ring 1 validation observer.
func NewSchemaValidator() SchemaValidator {
	return SchemaValidator{Base: observer.Base{
		ObserverName: "SchemaValidator",
		ObserverRing: ring.Validate,
		Operations:   []operation.Operation{operation.Create, operation.Update},
	}}
}

func (o SchemaValidator) Run(ctx context.Context, oc *observer.Context) error {
	for _, rec := range oc.Records {
		seen := make(map[string]bool)
		var fields []string
		add := func(f string) {
			if !seen[f] {
				fields = append(fields, f)
				seen[f] = true
			}
		}

		switch rec.State() {
		case operation.StateCreate:
			// The full payload against the schema definition: every
			// modified field (catches unknown columns) plus every
			// declared required column (catches omissions).
			for f := range rec.ModifiedSnapshot() {
				add(f)
			}
			for _, c := range oc.Schema.PayloadColumns() {
				if c.Required {
					add(c.Name)
				}
			}
		default:
			changes := rec.CalculateChanges()
			for f := range changes.Added {
				add(f)
			}
			for f := range changes.ModifiedFields {
				add(f)
			}
		}

		for _, f := range fields {
			verdict := validateField(oc.Schema, rec, f)
			rec.Metadata.FieldValidations[f] = verdict
			if !verdict.Valid {
				oc.AddError(pkgerrors.Validation(verdict.Code, f, verdict.Message))
			}
		}
	}
	return nil
}

func validateField(schemaDef schema.Definition, rec *record.StatefulRecord, field string) record.FieldValidation {
	col, ok := schemaDef.Column(field)
	if !ok {
		return record.FieldValidation{Code: pkgerrors.CodeUnknownField, Message: fmt.Sprintf("column %q is not declared on this schema", field)}
	}
	if col.System {
		return record.FieldValidation{Code: pkgerrors.CodeUnknownField, Message: fmt.Sprintf("column %q is system-managed and cannot be set directly", field)}
	}

	value, present := rec.GetField(field)
	if !present {
		if col.Required {
			return record.FieldValidation{Code: pkgerrors.CodeRequiredField, Message: fmt.Sprintf("%q is required", field)}
		}
		return record.FieldValidation{Valid: true}
	}

	if col.Kind == schema.KindArray {
		if _, ok := value.([]any); value != nil && !ok {
			return record.FieldValidation{Code: pkgerrors.CodeInvalidType, Message: fmt.Sprintf("%q must be an array", field)}
		}
	}

	return record.FieldValidation{Valid: true}
}
