package observer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringstore.io/platform/internal/operation"
	"ringstore.io/platform/internal/ring"
	"ringstore.io/platform/internal/schema"
)

func schemaStub() schema.Definition {
	return schema.Definition{Name: "account", Table: "account"}
}

type stubObserver struct {
	Base
	ran *[]string
}

func (s stubObserver) Run(ctx context.Context, oc *Context) error {
	*s.ran = append(*s.ran, s.Name())
	return nil
}

func TestRegistry_OrdersByPriorityThenRegistration(t *testing.T) {
	reg := NewRegistry()
	var ran []string

	low := stubObserver{Base: Base{ObserverName: "low-priority", ObserverRing: ring.Validate, ObserverPriority: 10}, ran: &ran}
	high := stubObserver{Base: Base{ObserverName: "high-priority", ObserverRing: ring.Validate, ObserverPriority: 1}, ran: &ran}
	firstTie := stubObserver{Base: Base{ObserverName: "first-tie", ObserverRing: ring.Validate, ObserverPriority: 5}, ran: &ran}
	secondTie := stubObserver{Base: Base{ObserverName: "second-tie", ObserverRing: ring.Validate, ObserverPriority: 5}, ran: &ran}

	require.NoError(t, reg.RegisterSync(low))
	require.NoError(t, reg.RegisterSync(high))
	require.NoError(t, reg.RegisterSync(firstTie))
	require.NoError(t, reg.RegisterSync(secondTie))
	reg.Freeze()

	observers := reg.SyncObservers(ring.Validate)
	require.Len(t, observers, 4)
	assert.Equal(t, "high-priority", observers[0].Name())
	assert.Equal(t, "first-tie", observers[1].Name())
	assert.Equal(t, "second-tie", observers[2].Name())
	assert.Equal(t, "low-priority", observers[3].Name())
}

func TestRegistry_RejectsRegistrationAfterFreeze(t *testing.T) {
	reg := NewRegistry()
	reg.Freeze()

	err := reg.RegisterSync(stubObserver{Base: Base{ObserverName: "late", ObserverRing: ring.Validate}})
	require.Error(t, err)
}

func TestRegistry_RejectsWrongPhaseRing(t *testing.T) {
	reg := NewRegistry()
	err := reg.RegisterSync(stubObserver{Base: Base{ObserverName: "bad", ObserverRing: ring.Audit}})
	require.Error(t, err)
}

func TestBag_PutTakeRoundTrip(t *testing.T) {
	type note struct{ Msg string }
	b := NewBag()

	_, ok := Take[note](b)
	assert.False(t, ok)

	Put(b, note{Msg: "hello"})
	got, ok := Take[note](b)
	require.True(t, ok)
	assert.Equal(t, "hello", got.Msg)
}

func TestContext_ResetRingErrorsClearsAccumulator(t *testing.T) {
	oc := NewContext(operation.Select, schemaStub(), nil, nil, time.Now())
	oc.AddError(nil)
	assert.True(t, oc.HasErrors())
	oc.ResetRingErrors()
	assert.False(t, oc.HasErrors())
}
