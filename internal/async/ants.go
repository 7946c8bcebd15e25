package async

import (
	"context"

	"go.uber.org/zap"

	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/pkg/logger"
	"ringstore.io/platform/internal/pkg/worker"
	"ringstore.io/platform/internal/ring"
)

// AntsExecutor is the default, in-process AsyncExecutor: rings 7-9
// run as fire-and-forget tasks on a shared worker.Pool. Zero external
// durability — a process crash between commit and dispatch silently
// drops the queued ring work. Use RiverExecutor when that is not
// acceptable.
type AntsExecutor struct {
	pool *worker.Pool
}

// NewAntsExecutor wraps an already-running pool.
func NewAntsExecutor(pool *worker.Pool) *AntsExecutor {
	return &AntsExecutor{pool: pool}
}

func (e *AntsExecutor) Dispatch(ctx context.Context, r ring.Ring, observers []observer.AsyncObserver, snap observer.Snapshot) error {
	for _, obs := range observers {
		obs := obs
		if err := e.pool.SubmitDetached(func(detachedCtx context.Context) {
			runCtx, cancel := context.WithTimeout(detachedCtx, obs.Timeout())
			defer cancel()
			if err := obs.RunAsync(runCtx, snap); err != nil {
				logger.Warn("async observer failed",
					zap.String("ring", r.String()),
					zap.String("observer", obs.Name()),
					zap.Error(err),
				)
			}
		}); err != nil {
			logger.Error("failed to dispatch async observer",
				zap.String("ring", r.String()),
				zap.String("observer", obs.Name()),
				zap.Error(err),
			)
		}
	}
	return nil
}
