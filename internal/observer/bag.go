package observer

import (
	"reflect"
	"sync"
)

// Bag is a typed metadata store with a single slot per type — the
// "type identity" token from spec §9. It lets observers stash
// heterogeneous blobs (preloaded rows, validation summaries, query
// notes) in ObserverContext without stringly-typed keys.
type Bag struct {
	mu     sync.Mutex
	values map[reflect.Type]any
}

// NewBag returns an empty metadata bag.
func NewBag() *Bag {
	return &Bag{values: make(map[reflect.Type]any)}
}

// Put stores v in the slot for its own type, replacing any existing
// value there.
func Put[T any](b *Bag, v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[reflect.TypeOf(v)] = v
}

// Take retrieves the value in T's slot. A miss returns the zero value
// and false — there is no implicit default.
func Take[T any](b *Bag) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero T
	raw, ok := b.values[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}
	return raw.(T), true
}
