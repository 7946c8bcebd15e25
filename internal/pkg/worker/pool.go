// Package worker provides goroutine pool management.
//
// Coding Standard (ADR-0031): Naked goroutines are forbidden.
// All concurrency must go through Worker Pool with context propagation.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"ringstore.io/platform/internal/pkg/logger"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a context-aware task function (ADR-0031 Rule 2).
type Task func(ctx context.Context)

// Pool wraps ants.Pool with context-aware submission (ADR-0031 Rule 2).
// It backs the default, in-process AsyncExecutor used to run rings 7-9
// (Audit, Integration, Notification) after a ring-5 commit.
type Pool struct {
	pool *ants.Pool
	name string

	serviceCtx    context.Context
	serviceCancel context.CancelFunc
}

// PoolConfig contains Worker Pool configuration.
type PoolConfig struct {
	Size           int
	ExpiryDuration time.Duration
}

// DefaultPoolConfig returns default configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Size:           100,
		ExpiryDuration: 10 * time.Second,
	}
}

// NewPool creates an async worker pool. ctx is the process lifecycle
// context; detached tasks run against it rather than the caller's
// request context so a ring-7..9 task outlives the invocation that
// queued it.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	serviceCtx, serviceCancel := context.WithCancel(ctx)

	panicHandler := func(p interface{}) {
		logger.Error("async worker panic recovered",
			zap.Any("panic", p),
			zap.Stack("stack"),
		)
	}

	antsPool, err := ants.NewPool(cfg.Size,
		ants.WithPanicHandler(panicHandler),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(cfg.ExpiryDuration),
	)
	if err != nil {
		serviceCancel()
		return nil, err
	}

	return &Pool{
		pool:          antsPool,
		name:          "async",
		serviceCtx:    serviceCtx,
		serviceCancel: serviceCancel,
	}, nil
}

// Submit runs task against the caller's context, through the pool's
// panic recovery. A task whose context is already cancelled when it is
// submitted or when it starts is skipped.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return p.pool.Submit(func() {
		select {
		case <-ctx.Done():
			logger.Debug("task skipped: context cancelled",
				zap.String("pool", p.name), zap.Error(ctx.Err()))
			return
		default:
		}
		task(ctx)
	})
}

// SubmitDetached queues a fire-and-forget task against the pool's
// service lifecycle context. Its error, if any, never propagates to a
// caller — this is what backs rings 7-9 per the pipeline's async
// contract.
func (p *Pool) SubmitDetached(task Task) error {
	return p.pool.Submit(func() {
		select {
		case <-p.serviceCtx.Done():
			logger.Debug("detached task skipped: pool shutting down", zap.String("pool", p.name))
			return
		default:
		}
		task(p.serviceCtx)
	})
}

// Shutdown gracefully releases the pool, cancelling the service
// context first so queued detached tasks observe it and return early.
func (p *Pool) Shutdown() {
	p.serviceCancel()

	const shutdownTimeout = 30 * time.Second
	if err := p.pool.ReleaseTimeout(shutdownTimeout); err != nil {
		logger.Warn("async pool shutdown timeout", zap.Error(err))
	}
}

// Metrics returns pool metrics for observability.
func (p *Pool) Metrics() map[string]int {
	return map[string]int{
		"running": p.pool.Running(),
		"free":    p.pool.Free(),
		"cap":     p.pool.Cap(),
	}
}
