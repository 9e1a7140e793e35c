// Package fanout implements the listener registry shared by the storage
// backends: collection-wide listeners receive full snapshots, per-id
// listeners receive single values. Callbacks run synchronously on the
// broadcasting goroutine in registration order.
package fanout

import (
	"sync"

	"campuslife/pkg/domain"
)

// Hub tracks listener registrations for one entity family.
type Hub[T any] struct {
	mu   sync.Mutex
	next int
	all  []allEntry[T]
	byID map[string][]idEntry[T]
}

type allEntry[T any] struct {
	seq int
	fn  func([]T)
}

type idEntry[T any] struct {
	seq int
	fn  func(T)
}

// NewHub returns an empty registry.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{byID: make(map[string][]idEntry[T])}
}

// ListenAll registers fn for collection snapshots. Replay of the current
// state is the caller's job; the hub only tracks registrations.
func (h *Hub[T]) ListenAll(fn func([]T)) domain.Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq := h.next
	h.next++
	h.all = append(h.all, allEntry[T]{seq: seq, fn: fn})
	return &registration{cancel: func() { h.dropAll(seq) }}
}

// Listen registers fn for changes to a single id.
func (h *Hub[T]) Listen(id string, fn func(T)) domain.Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq := h.next
	h.next++
	h.byID[id] = append(h.byID[id], idEntry[T]{seq: seq, fn: fn})
	return &registration{cancel: func() { h.dropID(id, seq) }}
}

// BroadcastAll delivers a collection snapshot to every ListenAll listener.
func (h *Hub[T]) BroadcastAll(snapshot []T) {
	h.mu.Lock()
	listeners := make([]func([]T), len(h.all))
	for i, e := range h.all {
		listeners[i] = e.fn
	}
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(snapshot)
	}
}

// Broadcast delivers a value to every listener of its id.
func (h *Hub[T]) Broadcast(id string, value T) {
	h.mu.Lock()
	entries := h.byID[id]
	listeners := make([]func(T), len(entries))
	for i, e := range entries {
		listeners[i] = e.fn
	}
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(value)
	}
}

// Active reports whether any listener is registered. Remote backends use it
// to skip the snapshot read that feeds a broadcast nobody would hear.
func (h *Hub[T]) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.all) > 0 {
		return true
	}
	for _, entries := range h.byID {
		if len(entries) > 0 {
			return true
		}
	}
	return false
}

func (h *Hub[T]) dropAll(seq int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.all {
		if e.seq == seq {
			h.all = append(h.all[:i], h.all[i+1:]...)
			return
		}
	}
}

func (h *Hub[T]) dropID(id string, seq int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.byID[id]
	for i, e := range entries {
		if e.seq == seq {
			entries = append(entries[:i], entries[i+1:]...)
			if len(entries) == 0 {
				delete(h.byID, id)
			} else {
				h.byID[id] = entries
			}
			return
		}
	}
}

type registration struct {
	once   sync.Once
	cancel func()
}

func (r *registration) Cancel() {
	r.once.Do(r.cancel)
}

var _ domain.Registration = (*registration)(nil)
