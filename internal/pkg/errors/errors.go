// Package errors provides the closed error taxonomy the observer
// pipeline propagates to callers.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories the pipeline produces.
// Every error that crosses a ring boundary is one of these.
type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindSecurity   Kind = "SecurityError"
	KindNotFound   Kind = "NotFound"
	KindFilter     Kind = "FilterError"
	KindStore      Kind = "StoreError"
	KindTimeout    Kind = "TimeoutError"
	KindSystem     Kind = "SystemError"
)

// PipelineError is a structured error carrying its Kind, a
// machine-readable code, optional field-level detail, and the
// underlying cause. StoreError messages are generic by construction —
// callers must never be handed raw SQL or identifiers (spec §7).
type PipelineError struct {
	Kind    Kind
	Code    string
	Message string
	Field   string // set for per-field validation failures; empty otherwise
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s[%s] %s: %s", e.Kind, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s[%s] %s", e.Kind, e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, &PipelineError{Kind: KindX}) style matching
// on Kind: a target with empty Code and Field matches any error of its
// Kind.
func (e *PipelineError) Is(target error) bool {
	var other *PipelineError
	if errors.As(target, &other) && other.Code == "" && other.Field == "" {
		return e.Kind == other.Kind
	}
	return false
}

func newErr(kind Kind, code, message string) *PipelineError {
	return &PipelineError{Kind: kind, Code: code, Message: message}
}

// Validation builds a field-scoped validation error.
func Validation(code, field, message string) *PipelineError {
	return &PipelineError{Kind: KindValidation, Code: code, Field: field, Message: message}
}

// Security builds an ACL/soft-delete-guard style rejection.
func Security(code, message string) *PipelineError {
	return newErr(KindSecurity, code, message)
}

// NotFound builds a missing-reference error (e.g. preload by id).
func NotFound(code, message string) *PipelineError {
	return newErr(KindNotFound, code, message)
}

// Filter builds a filter-compilation failure.
func Filter(code, message string) *PipelineError {
	return newErr(KindFilter, code, message)
}

// Store wraps a database-layer failure. The message MUST be generic;
// the original error is retained on Err for logging only, never surfaced
// to the caller verbatim.
func Store(code, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindStore, Code: code, Message: message, Err: cause}
}

// Timeout builds an observer-timeout error.
func Timeout(code, message string) *PipelineError {
	return newErr(KindTimeout, code, message)
}

// System builds an invariant-violation error.
func System(code, message string) *PipelineError {
	return newErr(KindSystem, code, message)
}

// KindOf extracts the Kind of a PipelineError, if any.
func KindOf(err error) (Kind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// List is an ordered collection of errors accumulated across a ring.
// The pipeline never stops accumulating mid-ring: all observers in a
// ring run, then the ring's errors are evaluated as a batch (spec
// §4.3 step 2c).
type List []*PipelineError

func (l List) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	if len(l) == 1 {
		return l[0].Error()
	}
	return fmt.Sprintf("%d errors, first: %s", len(l), l[0].Error())
}

// HasKind reports whether any error in the list has the given Kind.
func (l List) HasKind(k Kind) bool {
	for _, e := range l {
		if e.Kind == k {
			return true
		}
	}
	return false
}
