package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/identity"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	pkgerrors "ringstore.io/platform/internal/pkg/errors"
	"ringstore.io/platform/internal/record"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/schema"
	"ringstore.io/platform/internal/store"
)

// fakeHandle is an in-memory store.Handle: no SQL, just bookkeeping of
// what the engine asked of it, so these tests exercise ring sequencing
// and transaction discipline without a real database.
type fakeHandle struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool
}

func (h *fakeHandle) Execute(ctx context.Context, sql string, params []any) (int64, error) {
	return 0, nil
}

func (h *fakeHandle) ExecuteReturning(ctx context.Context, sql string, params []any) ([]store.Row, error) {
	return nil, nil
}

func (h *fakeHandle) Query(ctx context.Context, sql string, params []any) ([]store.Row, error) {
	return nil, nil
}

func (h *fakeHandle) Commit(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.committed = true
	return nil
}

func (h *fakeHandle) Rollback(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rolledBack = true
	return nil
}

type fakeStore struct {
	handle *fakeHandle
}

func newFakeStore() *fakeStore { return &fakeStore{handle: &fakeHandle{}} }

func (s *fakeStore) Begin(ctx context.Context) (store.Handle, error)    { return s.handle, nil }
func (s *fakeStore) ReadOnly(ctx context.Context) (store.Handle, error) { return s.handle, nil }

// fakeAsyncExecutor records every Dispatch call instead of running
// anything, so async-dispatch tests can assert on what was handed off
// without a real worker pool or queue.
type fakeAsyncExecutor struct {
	mu    sync.Mutex
	calls []ring.Ring
}

func (e *fakeAsyncExecutor) Dispatch(ctx context.Context, r ring.Ring, observers []observer.AsyncObserver, snap observer.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, r)
	return nil
}

func (e *fakeAsyncExecutor) dispatched() []ring.Ring {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ring.Ring(nil), e.calls...)
}

// trackingObserver records its own invocation and optionally fails,
// sleeps, or blocks on a channel so tests can exercise timeout and
// ordering behavior precisely.
type trackingObserver struct {
	observer.Base
	ran       *[]string
	fail      error
	sleep     time.Duration
	runAsync  func(ctx context.Context, snap observer.Snapshot) error
}

func (o trackingObserver) Run(ctx context.Context, oc *observer.Context) error {
	if o.ran != nil {
		*o.ran = append(*o.ran, o.Name())
	}
	if o.sleep > 0 {
		select {
		case <-time.After(o.sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return o.fail
}

func (o trackingObserver) RunAsync(ctx context.Context, snap observer.Snapshot) error {
	if o.runAsync != nil {
		return o.runAsync(ctx, snap)
	}
	return nil
}

func testSchema() schema.Definition {
	return schema.Definition{Name: "account", Table: "account", Columns: []schema.Column{
		{Name: "id", System: true},
		{Name: "name"},
	}}
}

func newTestEngine(t *testing.T, reg *observer.Registry, exec *fakeAsyncExecutor, opts ...Option) (*Engine, *fakeStore) {
	t.Helper()
	reg.Freeze()
	st := newFakeStore()
	clk := clock.NewFixed(time.Unix(0, 0))
	idp := identity.NewStatic([]string{"user:1"})
	return New(reg, st, idp, clk, exec, opts...), st
}

func TestExecuteMutation_RejectsSelect(t *testing.T) {
	reg := observer.NewRegistry()
	exec := &fakeAsyncExecutor{}
	e, _ := newTestEngine(t, reg, exec)

	_, err := e.ExecuteMutation(context.Background(), operation.Select, testSchema(), nil)
	require.Error(t, err)
}

func TestRun_ErrorBelowDatabaseAbortsWithoutRunningDatabaseRing(t *testing.T) {
	reg := observer.NewRegistry()
	var ran []string

	failing := trackingObserver{
		Base: observer.Base{ObserverName: "validator", ObserverRing: ring.Validate},
		ran:  &ran,
		fail: pkgerrors.Validation("REQUIRED_FIELD", "name", "name is required"),
	}
	dbObserver := trackingObserver{
		Base: observer.Base{ObserverName: "writer", ObserverRing: ring.Database},
		ran:  &ran,
	}
	require.NoError(t, reg.RegisterSync(failing))
	require.NoError(t, reg.RegisterSync(dbObserver))

	exec := &fakeAsyncExecutor{}
	e, st := newTestEngine(t, reg, exec)

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	_, err := e.ExecuteMutation(context.Background(), operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.Error(t, err)
	assert.Equal(t, []string{"validator"}, ran, "ring 5 must not run once a below-database ring has errored")
	assert.True(t, st.handle.rolledBack)
	assert.False(t, st.handle.committed)
	assert.Empty(t, exec.dispatched(), "async rings must not dispatch on an aborted invocation")
}

func TestRun_DatabaseRingErrorIsAlwaysFatal(t *testing.T) {
	reg := observer.NewRegistry()
	dbObserver := trackingObserver{
		Base: observer.Base{ObserverName: "writer", ObserverRing: ring.Database},
		fail: pkgerrors.Store(pkgerrors.CodeStoreFailure, "write failed", assert.AnError),
	}
	require.NoError(t, reg.RegisterSync(dbObserver))

	exec := &fakeAsyncExecutor{}
	e, st := newTestEngine(t, reg, exec)

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	_, err := e.ExecuteMutation(context.Background(), operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.Error(t, err)
	assert.True(t, st.handle.rolledBack)
	assert.False(t, st.handle.committed)
	assert.Empty(t, exec.dispatched(), "ring 5's own errors must never reach async dispatch")
}

func TestRun_PostDatabaseRingErrorIsBestEffortAndStillCommits(t *testing.T) {
	reg := observer.NewRegistry()
	postDB := trackingObserver{
		Base: observer.Base{ObserverName: "side-effect", ObserverRing: ring.PostDatabase},
		fail: pkgerrors.System(pkgerrors.CodeObserverFailure, "side effect failed"),
	}
	require.NoError(t, reg.RegisterSync(postDB))

	exec := &fakeAsyncExecutor{}
	e, st := newTestEngine(t, reg, exec)

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	_, err := e.ExecuteMutation(context.Background(), operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.NoError(t, err)
	assert.True(t, st.handle.committed)
	assert.False(t, st.handle.rolledBack)
}

func TestRun_SuccessfulMutationCommitsAndDispatchesAsyncRings(t *testing.T) {
	reg := observer.NewRegistry()
	audit := trackingObserver{Base: observer.Base{ObserverName: "audit-log", ObserverRing: ring.Audit}}
	integration := trackingObserver{Base: observer.Base{ObserverName: "webhook", ObserverRing: ring.Integration}}
	require.NoError(t, reg.RegisterAsync(audit))
	require.NoError(t, reg.RegisterAsync(integration))

	exec := &fakeAsyncExecutor{}
	e, st := newTestEngine(t, reg, exec)

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	records, err := e.ExecuteMutation(context.Background(), operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, st.handle.committed)
	assert.ElementsMatch(t, []ring.Ring{ring.Audit, ring.Integration}, exec.dispatched())
	// Notification has no registered observers: no dispatch call for it.
	assert.Len(t, exec.dispatched(), 2)
}

func TestRun_CancellationBeforeDatabaseAborts(t *testing.T) {
	reg := observer.NewRegistry()
	dbObserver := trackingObserver{Base: observer.Base{ObserverName: "writer", ObserverRing: ring.Database}}
	require.NoError(t, reg.RegisterSync(dbObserver))

	exec := &fakeAsyncExecutor{}
	e, st := newTestEngine(t, reg, exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	_, err := e.ExecuteMutation(ctx, operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.Error(t, err)
	assert.True(t, st.handle.rolledBack)
}

func TestRun_CancellationAfterDatabaseCommitsButSkipsPostDatabaseAndAsync(t *testing.T) {
	reg := observer.NewRegistry()
	var ran []string
	ctx, cancel := context.WithCancel(context.Background())

	// Cancels the caller's context from inside ring 5 itself, once it
	// has already started. Ring 5's own side effects have already been
	// issued against the handle, so the invocation still commits
	// successfully — but cancellation arriving at the ring 5/6
	// boundary must abort the remaining sync work (PostDatabase) and
	// skip async dispatch (spec §4.3/§5).
	cancellingDB := trackingObserverWithSideEffect{
		trackingObserver: trackingObserver{Base: observer.Base{ObserverName: "writer", ObserverRing: ring.Database}, ran: &ran},
		sideEffect:       cancel,
	}
	postDB := trackingObserver{
		Base: observer.Base{ObserverName: "after-db", ObserverRing: ring.PostDatabase},
		ran:  &ran,
	}
	audit := trackingObserver{Base: observer.Base{ObserverName: "audit-log", ObserverRing: ring.Audit}}
	require.NoError(t, reg.RegisterSync(cancellingDB))
	require.NoError(t, reg.RegisterSync(postDB))
	require.NoError(t, reg.RegisterAsync(audit))

	exec := &fakeAsyncExecutor{}
	e, st := newTestEngine(t, reg, exec)

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	_, err := e.ExecuteMutation(ctx, operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.NoError(t, err, "cancellation arriving during/after ring 5 must not abort the invocation")
	assert.Equal(t, []string{"writer"}, ran, "PostDatabase must not run once cancellation is observed at the ring 5/6 boundary")
	assert.True(t, st.handle.committed)
	assert.Empty(t, exec.dispatched(), "async dispatch must be skipped once cancelled after ring 5")
}

// trackingObserverWithSideEffect runs an arbitrary side effect (e.g.
// cancelling the caller's context) before returning, to test behavior
// that depends on state changing mid-ring.
type trackingObserverWithSideEffect struct {
	trackingObserver
	sideEffect func()
}

func (o trackingObserverWithSideEffect) Run(ctx context.Context, oc *observer.Context) error {
	if o.sideEffect != nil {
		o.sideEffect()
	}
	return o.trackingObserver.Run(ctx, oc)
}

func TestBudget_ExhaustedDeadlineGivesLaterObserverImmediateTimeout(t *testing.T) {
	reg := observer.NewRegistry()
	var ran []string

	slow := trackingObserver{
		Base:  observer.Base{ObserverName: "slow", ObserverRing: ring.Validate, ObserverTimeout: 50 * time.Millisecond},
		ran:   &ran,
		sleep: 40 * time.Millisecond,
	}
	starved := trackingObserver{
		Base: observer.Base{ObserverName: "starved", ObserverRing: ring.Validate, ObserverTimeout: 50 * time.Millisecond, ObserverPriority: 1},
		ran:  &ran,
	}
	require.NoError(t, reg.RegisterSync(slow))
	require.NoError(t, reg.RegisterSync(starved))

	exec := &fakeAsyncExecutor{}
	e, _ := newTestEngine(t, reg, exec, WithGlobalDeadline(45*time.Millisecond))

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	_, err := e.ExecuteMutation(context.Background(), operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.Error(t, err)
	assert.Equal(t, []string{"slow"}, ran, "starved observer must not run once the global budget is exhausted")
	var pe pkgerrors.List
	require.ErrorAs(t, err, &pe)
	require.True(t, pe.HasKind(pkgerrors.KindTimeout))
}

func TestRun_PriorityOrdersObserversWithinARing(t *testing.T) {
	reg := observer.NewRegistry()
	var ran []string

	low := trackingObserver{Base: observer.Base{ObserverName: "low", ObserverRing: ring.Validate, ObserverPriority: 10}, ran: &ran}
	high := trackingObserver{Base: observer.Base{ObserverName: "high", ObserverRing: ring.Validate, ObserverPriority: 1}, ran: &ran}
	require.NoError(t, reg.RegisterSync(low))
	require.NoError(t, reg.RegisterSync(high))

	exec := &fakeAsyncExecutor{}
	e, _ := newTestEngine(t, reg, exec)

	rec := record.Create(map[string]any{"name": "alice"}, time.Unix(0, 0))
	_, err := e.ExecuteMutation(context.Background(), operation.Create, testSchema(), []*record.StatefulRecord{rec})

	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low"}, ran)
}

func TestExecuteSelect_ExcludesBusinessAndPostDatabaseByDefault(t *testing.T) {
	reg := observer.NewRegistry()
	var ran []string

	business := trackingObserver{Base: observer.Base{ObserverName: "biz", ObserverRing: ring.Business}, ran: &ran}
	dataPrep := trackingObserver{Base: observer.Base{ObserverName: "prep", ObserverRing: ring.DataPrep}, ran: &ran}
	require.NoError(t, reg.RegisterSync(business))
	require.NoError(t, reg.RegisterSync(dataPrep))

	exec := &fakeAsyncExecutor{}
	e, _ := newTestEngine(t, reg, exec)

	_, err := e.ExecuteSelect(context.Background(), testSchema(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"prep"}, ran, "Business has no explicit Select applicability, so it must not run")
}

func TestExecuteSelect_ObserverCanOptIntoBusinessRing(t *testing.T) {
	reg := observer.NewRegistry()
	var ran []string

	optedIn := trackingObserver{
		Base: observer.Base{
			ObserverName: "opted-in",
			ObserverRing: ring.Business,
			Operations:   []operation.Operation{operation.Select},
		},
		ran: &ran,
	}
	require.NoError(t, reg.RegisterSync(optedIn))

	exec := &fakeAsyncExecutor{}
	e, _ := newTestEngine(t, reg, exec)

	_, err := e.ExecuteSelect(context.Background(), testSchema(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"opted-in"}, ran, "an observer that declares Select applicability overrides the baseline exclusion")
}
