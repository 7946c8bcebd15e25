package observers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringstore.io/platform/internal/clock"
	"ringstore.io/platform/internal/governance/audit"
	"ringstore.io/platform/internal/observer"
	"ringstore.io/platform/internal/operation"
	"ringstore.io/platform/internal/record"
	"ringstore.io/platform/internal/store"
)

// fakeTenantStore hands back one shared fakeHandle so tests can inspect
// what the Audit observer wrote through it.
type fakeTenantStore struct {
	handle  *fakeHandle
	beginErr error
}

func (s *fakeTenantStore) Begin(ctx context.Context) (store.Handle, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	return s.handle, nil
}

func (s *fakeTenantStore) ReadOnly(ctx context.Context) (store.Handle, error) {
	return s.handle, nil
}

func TestAuditObserver_WritesAuditRowsThroughHandle(t *testing.T) {
	h := &fakeHandle{}
	ts := &fakeTenantStore{handle: h}
	o := NewAuditObserver(ts, audit.NewLogger(clock.NewFixed(time.Unix(100, 0))))

	rec1 := record.Existing("a1", map[string]any{"name": "old"}, map[string]any{"name": "new"}, operation.Update, time.Unix(0, 0))
	rec2 := record.Existing("a2", map[string]any{"name": "same"}, map[string]any{"name": "same"}, operation.Update, time.Unix(0, 0))
	snap := observer.NewSnapshot(operation.Update, accountSchema(), []record.StatefulRecord{*rec1, *rec2}, time.Unix(0, 0))

	err := o.RunAsync(context.Background(), snap)
	require.NoError(t, err)
	assert.Contains(t, h.lastSQL, "pipeline_audit")
}

func TestAuditObserver_BeginFailurePropagates(t *testing.T) {
	ts := &fakeTenantStore{beginErr: assert.AnError}
	o := NewAuditObserver(ts, audit.NewLogger(clock.NewFixed(time.Unix(100, 0))))

	snap := observer.NewSnapshot(operation.Update, accountSchema(), nil, time.Unix(0, 0))
	err := o.RunAsync(context.Background(), snap)
	require.Error(t, err)
}
