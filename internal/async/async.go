// Package async provides the two AsyncExecutor backends that dispatch
// rings 7-9 work: an in-process ants pool and a durable River queue
// (spec §6, SPEC_FULL §4.5).
package async

import (
	"context"

	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/ring"
)

// Executor spawns detached work for one async ring. It guarantees the
// task starts but never propagates its error back to the pipeline
// caller (spec §6): a Dispatch call returning nil only means the task
// was accepted, not that it succeeded.
type Executor interface {
	Dispatch(ctx context.Context, r ring.Ring, observers []observer.AsyncObserver, snap observer.Snapshot) error
}
