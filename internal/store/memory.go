// internal/store/memory.go
//
// In-memory registry of live game sessions.
//
// Characteristics:
//   - Stores *S values keyed by K in a map guarded by an RWMutex.
//   - Every entry carries its own mutex; WithLock gives one mutator at a time
//     per session while other sessions proceed in parallel.
//   - The map lock is never held while a caller's function runs.
//   - State is lost when the process restarts.

package store

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrExists is returned by Create when the key is already registered.
	ErrExists = errors.New("session already exists")
	// ErrNotFound is returned for missing or already-removed sessions.
	ErrNotFound = errors.New("session not found")
)

// entry is one registered session plus its exclusive lock.
type entry[S any] struct {
	mu      sync.Mutex
	val     *S
	removed atomic.Bool
}

// Store is a concurrent-safe session registry with per-session locking.
type Store[K comparable, S any] struct {
	mu      sync.RWMutex // guards entries map
	entries map[K]*entry[S]
}

// New constructs an empty Store.
func New[K comparable, S any]() *Store[K, S] {
	return &Store[K, S]{entries: make(map[K]*entry[S])}
}

// Create registers s under k. Returns ErrExists if k is taken.
func (m *Store[K, S]) Create(k K, s *S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[k]; ok {
		return ErrExists
	}
	m.entries[k] = &entry[S]{val: s}
	return nil
}

// Get looks up a session by key.
// The returned pointer must only be read or mutated inside WithLock.
func (m *Store[K, S]) Get(k K) (*S, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[k]; ok {
		return e.val, true
	}
	return nil, false
}

// Remove unregisters k. Safe to call from inside WithLock for the same key;
// callers blocked on that entry's lock observe ErrNotFound once they get it.
func (m *Store[K, S]) Remove(k K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[k]; ok {
		e.removed.Store(true)
		delete(m.entries, k)
	}
}

// WithLock runs fn with exclusive access to the session stored under k.
// Returns ErrNotFound if k is absent, or was removed while waiting.
// Any error returned by fn is passed through.
func (m *Store[K, S]) WithLock(k K, fn func(s *S) error) error {
	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed.Load() {
		return ErrNotFound
	}
	return fn(e.val)
}

// Len reports the number of registered sessions.
func (m *Store[K, S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Keys returns a snapshot of the registered keys, in no particular order.
func (m *Store[K, S]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]K, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	return out
}
