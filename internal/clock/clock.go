// Package clock provides a deterministic clock abstraction for the
// observer pipeline.
//
// Core logic packages MUST NOT call time.Now() directly. Instead,
// inject a Clock so the TimestampEnricher observer and pipeline_start
// metadata are reproducible in tests.
package clock

import "time"

// Clock provides the current time. Every ring and built-in observer
// that stamps a timestamp depends on this interface, not time.Now().
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual system time. Use only at process entry
// points.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns a fixed time. Use for deterministic tests.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time { return c.T }

// FuncClock wraps a function as a Clock, for tests that need
// incrementing or otherwise dynamic time.
type FuncClock func() time.Time

// Now calls the wrapped function.
func (f FuncClock) Now() time.Time { return f() }

// NewReal returns a Clock backed by the real system time.
func NewReal() Clock { return RealClock{} }

// NewFixed returns a Clock that always returns t.
func NewFixed(t time.Time) Clock { return FixedClock{T: t} }

// NewFunc returns a Clock backed by a custom function.
func NewFunc(f func() time.Time) Clock { return FuncClock(f) }

var (
	_ Clock = RealClock{}
	_ Clock = FixedClock{}
	_ Clock = FuncClock(nil)
)
