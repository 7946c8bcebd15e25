package observer

import (
	"fmt"
	"sort"
	"sync"

	"ringstore.io/platform/internal/ring"
)

// Registry is the ordered collection of observers, keyed by ring. It
// is built once at process start and treated as immutable afterward
// (spec §5, §9: "No global registry mutation after process start").
// The mutex guards construction; SyncObservers and AsyncObservers take
// its read lock and are safe for concurrent use by many pipeline
// invocations once built.
type Registry struct {
	mu    sync.RWMutex
	sync_ map[ring.Ring][]syncEntry
	async map[ring.Ring][]asyncEntry
	built bool
}

type syncEntry struct {
	observer SyncObserver
	seq      int
}

type asyncEntry struct {
	observer AsyncObserver
	seq      int
}

// NewRegistry returns an empty, mutable builder. Call RegisterSync /
// RegisterAsync to populate it, then Freeze to obtain the immutable
// view the pipeline engine consults per invocation.
func NewRegistry() *Registry {
	return &Registry{
		sync_: make(map[ring.Ring][]syncEntry),
		async: make(map[ring.Ring][]asyncEntry),
	}
}

// RegisterSync adds a ring 0-6 observer. Returns an error if the
// registry has already been frozen or if o targets an async ring.
func (r *Registry) RegisterSync(o SyncObserver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		return fmt.Errorf("observer registry is frozen: cannot register %q", o.Name())
	}
	if !o.Ring().IsSync() {
		return fmt.Errorf("observer %q targets ring %s, which is not a sync ring", o.Name(), o.Ring())
	}
	entries := r.sync_[o.Ring()]
	r.sync_[o.Ring()] = append(entries, syncEntry{observer: o, seq: len(entries) + len(r.async[o.Ring()])})
	return nil
}

// RegisterAsync adds a ring 7-9 observer.
func (r *Registry) RegisterAsync(o AsyncObserver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		return fmt.Errorf("observer registry is frozen: cannot register %q", o.Name())
	}
	if !o.Ring().IsAsync() {
		return fmt.Errorf("observer %q targets ring %s, which is not an async ring", o.Name(), o.Ring())
	}
	entries := r.async[o.Ring()]
	r.async[o.Ring()] = append(entries, asyncEntry{observer: o, seq: len(entries) + len(r.sync_[o.Ring()])})
	return nil
}

// Freeze sorts every ring's observers by (priority, registration
// order) and rejects further registration. Call once, after all
// built-in and application observers have been registered.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for rg := range r.sync_ {
		entries := r.sync_[rg]
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].observer.Priority() != entries[j].observer.Priority() {
				return entries[i].observer.Priority() < entries[j].observer.Priority()
			}
			return entries[i].seq < entries[j].seq
		})
		r.sync_[rg] = entries
	}
	for rg := range r.async {
		entries := r.async[rg]
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].observer.Priority() != entries[j].observer.Priority() {
				return entries[i].observer.Priority() < entries[j].observer.Priority()
			}
			return entries[i].seq < entries[j].seq
		})
		r.async[rg] = entries
	}
	r.built = true
}

// SyncObservers returns the frozen, priority-ordered list of sync
// observers for r. Safe for concurrent use once Freeze has run.
func (reg *Registry) SyncObservers(r ring.Ring) []SyncObserver {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	entries := reg.sync_[r]
	out := make([]SyncObserver, len(entries))
	for i, e := range entries {
		out[i] = e.observer
	}
	return out
}

// AsyncObservers returns the frozen, priority-ordered list of async
// observers for r.
func (reg *Registry) AsyncObservers(r ring.Ring) []AsyncObserver {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	entries := reg.async[r]
	out := make([]AsyncObserver, len(entries))
	for i, e := range entries {
		out[i] = e.observer
	}
	return out
}
