package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/store"
)

type fakeHandle struct {
	execErr    error
	lastSQL    string
	lastParams []any
}

func (h *fakeHandle) Execute(ctx context.Context, sql string, params []any) (int64, error) {
	h.lastSQL, h.lastParams = sql, params
	return 1, h.execErr
}
func (h *fakeHandle) ExecuteReturning(ctx context.Context, sql string, params []any) ([]store.Row, error) {
	return nil, nil
}
func (h *fakeHandle) Query(ctx context.Context, sql string, params []any) ([]store.Row, error) {
	return nil, nil
}
func (h *fakeHandle) Commit(ctx context.Context) error   { return nil }
func (h *fakeHandle) Rollback(ctx context.Context) error { return nil }

func TestLogRingDispatch_WritesInsertWithMarshaledDetail(t *testing.T) {
	h := &fakeHandle{}
	l := NewLogger(clock.NewFixed(time.Unix(100, 0)))

	err := l.LogRingDispatch(context.Background(), h, "account", "update", "a1", "Audit", "AuditObserver", map[string]any{"modified": []string{"name"}})
	require.NoError(t, err)
	assert.Contains(t, h.lastSQL, "pipeline_audit")
	assert.Contains(t, h.lastSQL, "INSERT INTO")
	assert.Contains(t, h.lastParams, "Audit")
	assert.Contains(t, h.lastParams, "AuditObserver")
}

func TestLogRingDispatch_StoreErrorIsWrapped(t *testing.T) {
	h := &fakeHandle{execErr: assert.AnError}
	l := NewLogger(clock.NewFixed(time.Unix(100, 0)))

	err := l.LogRingDispatch(context.Background(), h, "account", "update", "a1", "Audit", "AuditObserver", nil)
	require.Error(t, err)
}
