// Package record implements the stateful-record model: a per-record
// snapshot of persisted state ("original") alongside an in-flight,
// mutable view ("modified"), with diff-derived write planning.
package record

import (
	"time"

	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/operation"
)

// FieldValidation is a per-field validation verdict attached by the
// Validate ring.
type FieldValidation struct {
	Valid   bool
	Code    string
	Message string
}

// SecurityCheck is a named boolean outcome recorded by the Security
// ring, with an optional human-readable reason for a rejection.
type SecurityCheck struct {
	Passed bool
	Reason string
}

// Metadata carries the bookkeeping the pipeline accumulates around a
// record as it crosses rings (spec §3).
type Metadata struct {
	APIChanges       map[string]struct{}
	ObserverChanges  map[string]string
	FieldValidations map[string]FieldValidation
	SecurityChecks   map[string]SecurityCheck
	PipelineStart    time.Time
}

func newMetadata(apiChanges []string, start time.Time) Metadata {
	m := Metadata{
		APIChanges:       make(map[string]struct{}, len(apiChanges)),
		ObserverChanges:  make(map[string]string),
		FieldValidations: make(map[string]FieldValidation),
		SecurityChecks:   make(map[string]SecurityCheck),
		PipelineStart:    start,
	}
	for _, f := range apiChanges {
		m.APIChanges[f] = struct{}{}
	}
	return m
}

// StatefulRecord tracks a record's persisted snapshot and its
// in-flight modifications, per spec §3.
type StatefulRecord struct {
	id       *string
	original map[string]any
	modified map[string]any
	state    operation.RecordState
	Metadata Metadata
}

// Create builds a new record for an Operation=Create invocation.
// original starts empty; modified starts as the caller's payload; every
// payload key is recorded as an api_change.
func Create(payload map[string]any, start time.Time) *StatefulRecord {
	modified := make(map[string]any, len(payload))
	changed := make([]string, 0, len(payload))
	for k, v := range payload {
		modified[k] = v
		changed = append(changed, k)
	}
	return &StatefulRecord{
		original: map[string]any{},
		modified: modified,
		state:    operation.StateCreate,
		Metadata: newMetadata(changed, start),
	}
}

// Existing builds a record seeded from a persisted snapshot for
// Update/Delete/Revert. modified starts as original merged with the
// caller-supplied changes; only changes' keys are api_changes.
func Existing(id string, original map[string]any, changes map[string]any, op operation.Operation, start time.Time) *StatefulRecord {
	modified := make(map[string]any, len(original)+len(changes))
	for k, v := range original {
		modified[k] = v
	}
	changed := make([]string, 0, len(changes))
	for k, v := range changes {
		modified[k] = v
		changed = append(changed, k)
	}
	origCopy := make(map[string]any, len(original))
	for k, v := range original {
		origCopy[k] = v
	}
	return &StatefulRecord{
		id:       &id,
		original: origCopy,
		modified: modified,
		state:    operation.FromOperation(op),
		Metadata: newMetadata(changed, start),
	}
}

// FromRow wraps a freshly-read row as a NoChange record: original and
// modified are identical, so CalculateChanges().HasChanges is false
// (spec §4.4 SqlExecutor, Select case).
func FromRow(row map[string]any, start time.Time) *StatefulRecord {
	original := make(map[string]any, len(row))
	modified := make(map[string]any, len(row))
	for k, v := range row {
		original[k] = v
		modified[k] = v
	}
	r := &StatefulRecord{
		original: original,
		modified: modified,
		state:    operation.StateNoChange,
		Metadata: newMetadata(nil, start),
	}
	if id, ok := row["id"]; ok {
		if s, ok := id.(string); ok {
			r.id = &s
		}
	}
	return r
}

// ID returns the record's stable identifier, if any. Absent only for
// Create prior to ring 5.
func (r *StatefulRecord) ID() (string, bool) {
	if r.id == nil {
		return "", false
	}
	return *r.id, true
}

// SetID assigns an identifier, e.g. once ring 5's INSERT...RETURNING
// has produced one.
func (r *StatefulRecord) SetID(id string) { r.id = &id }

// State returns the record's current lifecycle state.
func (r *StatefulRecord) State() operation.RecordState { return r.state }

// SetState overrides the record's lifecycle state. Used when a record
// is rebuilt outside the pipeline, e.g. by the durable async worker
// restoring the state carried in a job; ring 5 leaves the state as is.
func (r *StatefulRecord) SetState(s operation.RecordState) { r.state = s }

// Original returns the value of field f as it was last read from the
// store. SeedOriginal is the only way to replace original.
func (r *StatefulRecord) Original(f string) (any, bool) {
	v, ok := r.original[f]
	return v, ok
}

// OriginalSnapshot returns a defensive copy of the full persisted
// snapshot.
func (r *StatefulRecord) OriginalSnapshot() map[string]any {
	out := make(map[string]any, len(r.original))
	for k, v := range r.original {
		out[k] = v
	}
	return out
}

// SeedOriginal replaces original with a copy of row. Its callers are
// ring 0 (RecordPreloader), ring 5's post-write materialization
// (SqlExecutor) and the durable async worker rebuilding a record.
func (r *StatefulRecord) SeedOriginal(row map[string]any) {
	original := make(map[string]any, len(row))
	for k, v := range row {
		original[k] = v
	}
	r.original = original
}

// GetField returns the current (in-flight) value of field f.
func (r *StatefulRecord) GetField(f string) (any, bool) {
	v, ok := r.modified[f]
	return v, ok
}

// ModifiedSnapshot returns a defensive copy of the full in-flight
// field map.
func (r *StatefulRecord) ModifiedSnapshot() map[string]any {
	out := make(map[string]any, len(r.modified))
	for k, v := range r.modified {
		out[k] = v
	}
	return out
}

// SetField writes v to field f and records observerName as its last
// writer. Last-writer-wins on the value; provenance in
// ObserverChanges is always overwritten to the most recent writer,
// per spec §3 (this is the normative resolution of the open question
// in spec §9).
func (r *StatefulRecord) SetField(f string, v any, observerName string) {
	r.modified[f] = v
	r.Metadata.ObserverChanges[f] = observerName
}

// RemoveField deletes field f from modified, recording observerName
// as the actor responsible for the removal.
func (r *StatefulRecord) RemoveField(f string, observerName string) {
	delete(r.modified, f)
	r.Metadata.ObserverChanges[f] = observerName
}

// FieldChangedByAPI reports whether the caller explicitly supplied f.
func (r *StatefulRecord) FieldChangedByAPI(f string) bool {
	_, ok := r.Metadata.APIChanges[f]
	return ok
}

// FieldChangedByObserver reports whether any observer wrote f.
func (r *StatefulRecord) FieldChangedByObserver(f string) bool {
	_, ok := r.Metadata.ObserverChanges[f]
	return ok
}

// FieldChanged reports whether f differs between original and
// modified (added, modified, or removed).
func (r *StatefulRecord) FieldChanged(f string) bool {
	orig, hadOrig := r.original[f]
	mod, hasMod := r.modified[f]
	switch {
	case hadOrig && hasMod:
		return !valuesEqual(orig, mod)
	case hadOrig != hasMod:
		return true
	default:
		return false
	}
}

// missingIDError is returned by ToWritePlan when Update/Delete/Revert
// is attempted without an id.
func missingIDError() error {
	return pkgerrors.Validation(pkgerrors.CodeMissingID, "id", "id is required for this operation")
}

func valuesEqual(a, b any) bool {
	return deepEqual(a, b)
}
