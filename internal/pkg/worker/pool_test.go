package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ringstore.io/platform/internal/pkg/logger"
)

func init() {
	logger.ForTest()
}

func TestNewPool(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()
}

func TestPool_Submit(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, PoolConfig{Size: 10, ExpiryDuration: time.Second})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err = pool.Submit(ctx, func(ctx context.Context) {
		executed.Store(true)
		wg.Done()
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	wg.Wait()
	if !executed.Load() {
		t.Error("task was not executed")
	}
}

func TestPool_Submit_CancelledContext(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	cancelledCtx, cancel := context.WithCancel(ctx)
	cancel()

	err = pool.Submit(cancelledCtx, func(ctx context.Context) {
		t.Error("task should not execute with cancelled context")
	})
	if err != context.Canceled {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
}

func TestPool_SubmitDetached(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err = pool.SubmitDetached(func(ctx context.Context) {
		executed.Store(true)
		wg.Done()
	})
	if err != nil {
		t.Fatalf("SubmitDetached() error = %v", err)
	}

	wg.Wait()
	pool.Shutdown()

	if !executed.Load() {
		t.Error("detached task was not executed")
	}
}

// TestPool_SubmitDetached_OutlivesRequestContext verifies that a
// detached task keeps running after its enqueuing request's context is
// cancelled — this is the core guarantee rings 7-9 rely on.
func TestPool_SubmitDetached_OutlivesRequestContext(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, DefaultPoolConfig())
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	reqCtx, cancelReq := context.WithCancel(ctx)
	cancelReq() // caller already returned by the time the detached task runs

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	err = pool.SubmitDetached(func(taskCtx context.Context) {
		defer wg.Done()
		if taskCtx.Err() != nil {
			t.Error("detached task context should not be cancelled by request cancellation")
		}
		_ = reqCtx
		executed.Store(true)
	})
	if err != nil {
		t.Fatalf("SubmitDetached() error = %v", err)
	}
	wg.Wait()

	if !executed.Load() {
		t.Error("detached task did not run")
	}
}

func TestPool_Metrics(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, PoolConfig{Size: 10, ExpiryDuration: time.Second})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	metrics := pool.Metrics()
	if metrics["cap"] != 10 {
		t.Errorf("cap = %d, want 10", metrics["cap"])
	}
}

func TestPool_Submit_ContextCancelledWhileQueued(t *testing.T) {
	ctx := context.Background()
	pool, err := NewPool(ctx, PoolConfig{Size: 1, ExpiryDuration: time.Second})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	blockCh := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	_ = pool.Submit(ctx, func(ctx context.Context) {
		wg.Done()
		<-blockCh
	})
	wg.Wait()

	cancelCtx, cancel := context.WithCancel(ctx)

	var taskExecuted atomic.Bool
	var submitWg sync.WaitGroup
	submitWg.Add(1)
	go func() {
		defer submitWg.Done()
		_ = pool.Submit(cancelCtx, func(ctx context.Context) {
			taskExecuted.Store(true)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	close(blockCh)
	submitWg.Wait()
	// no panic is the assertion; execution is a timing race either way
}
