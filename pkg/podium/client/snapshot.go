package client

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Snapshot.Refresh when a newer refresh or a
// Set happened while the fetch was in flight. The stale result is dropped.
var ErrSuperseded = errors.New("podium: superseded by a newer request")

// Snapshot caches the latest value of a remote resource, such as a group's
// award list. Only the most recently started refresh may store its result,
// so a slow response never overwrites a newer one.
type Snapshot[T any] struct {
	mu     sync.Mutex
	value  T
	loaded bool
	gen    uint64
}

// Get returns the cached value and whether one has been loaded
func (s *Snapshot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.loaded
}

// Set stores v and invalidates refreshes that are still in flight
func (s *Snapshot[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.value = v
	s.loaded = true
}

// Clear drops the cached value
func (s *Snapshot[T]) Clear() {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.value = zero
	s.loaded = false
}

// Refresh calls fetch and stores its result. A failed fetch keeps the
// previous value. A cancelled context or a newer refresh discards it.
func (s *Snapshot[T]) Refresh(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	v, err := fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return zero, ErrSuperseded
	}
	if err != nil {
		return zero, err
	}
	s.value = v
	s.loaded = true
	return v, nil
}
