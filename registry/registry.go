// Package registry is the process-global handle table (spec.md §4.E): a
// lock-free map from non-zero ids to reference-counted entries, addressed
// across the ABI by an opaque pointer-sized integer. Never cleared as a
// whole — entries are removed individually on plugin shutdown.
package registry

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is a lock-free id -> entry map, generalizing the teacher's
// registry_global.go singleton (a sync.Once-built global) and
// plugin_host.go's plugin-index table into the spec's ref-counted form.
type Registry[T any] struct {
	entries *xsync.MapOf[uint64, *entry[T]]
	nextID  atomic.Uint64
}

type entry[T any] struct {
	refs  atomic.Int64
	value T
}

// New creates an empty Registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{entries: xsync.NewMapOf[uint64, *entry[T]]()}
}

// Insert stores value under a freshly allocated non-zero id with an
// initial reference count of one, and returns that id. Ids are allocated
// by a monotonic counter; on the practically unreachable event that it
// wraps past zero, allocation skips zero so "0 denotes no handle" holds.
func (r *Registry[T]) Insert(value T) uint64 {
	for {
		id := r.nextID.Add(1)
		if id == 0 {
			continue // wrapped past zero, try the next one
		}
		e := &entry[T]{value: value}
		e.refs.Store(1)
		if _, loaded := r.entries.LoadOrStore(id, e); !loaded {
			return id
		}
		// Vanishingly unlikely collision with a still-live id from a
		// prior wrap; retry with the next counter value.
	}
}

// Get returns the value stored under id and increments its reference
// count, so the caller holds a guaranteed-live reference until it calls
// Release. ok is false for id == 0 or an id with no live entry.
func (r *Registry[T]) Get(id uint64) (value T, ok bool) {
	if id == 0 {
		return value, false
	}
	e, found := r.entries.Load(id)
	if !found {
		return value, false
	}
	e.refs.Add(1)
	return e.value, true
}

// Release drops one reference acquired by Get. It never removes the
// entry — only Remove does that — so a Get-then-Release pair around a
// single call simply restores the count Insert established.
func (r *Registry[T]) Release(id uint64) {
	if id == 0 {
		return
	}
	if e, found := r.entries.Load(id); found {
		e.refs.Add(-1)
	}
}

// Remove deletes id's entry unconditionally and returns its last known
// value. Called once, from shutdown, after the Handle itself guarantees
// no further calls will acquire new references.
func (r *Registry[T]) Remove(id uint64) (value T, ok bool) {
	if id == 0 {
		return value, false
	}
	e, found := r.entries.LoadAndDelete(id)
	if !found {
		return value, false
	}
	return e.value, true
}

// Len reports the number of live entries. Diagnostic only.
func (r *Registry[T]) Len() int {
	return r.entries.Size()
}
