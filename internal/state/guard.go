// Package state provides the exclusive-access guard around shared mutable
// server state.
package state

import "sync"

// Guard serializes all access to a single value of type T.
//
// There is no read/write distinction: every access is exclusive. Guards are
// not reentrant, so a function running under Do must not call Do or TryDo on
// the same guard.
type Guard[T any] struct {
	mu    sync.Mutex
	value T
}

// NewGuard creates a guard protecting initial.
func NewGuard[T any](initial T) *Guard[T] {
	return &Guard[T]{value: initial}
}

// Do runs fn with exclusive access to the guarded value.
//
// Callers block until the guard is free. The guard is released when fn
// returns, including when fn panics.
func (g *Guard[T]) Do(fn func(v *T) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return fn(&g.value)
}

// TryDo runs fn only if the guard can be acquired without blocking.
// It reports whether fn ran.
func (g *Guard[T]) TryDo(fn func(v *T) error) (bool, error) {
	if !g.mu.TryLock() {
		return false, nil
	}
	defer g.mu.Unlock()

	return true, fn(&g.value)
}

// Load returns a copy of the guarded value.
func (g *Guard[T]) Load() T {
	var out T

	_ = g.Do(func(v *T) error {
		out = *v

		return nil
	})

	return out
}
