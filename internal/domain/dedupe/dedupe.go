// Package dedupe tracks which owner first claimed a key, so that a second
// claim can be reported as a collision instead of overwriting the first.
package dedupe

import (
	"sync"
	"sync/atomic"
)

// Key identifies one (subject, timepoint) cell of a longitudinal study.
type Key struct {
	Subject string
	Time    int64
}

// Tracker records the first owner of each key. It never evicts: a forgotten
// key would let a later duplicate through unreported.
type Tracker[K comparable] struct {
	mu     sync.Mutex
	owners map[K]string
	size   atomic.Int64
}

// New creates an empty tracker.
func New[K comparable](opts ...Option) *Tracker[K] {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	capacity := cfg.capacity
	if capacity < 0 {
		capacity = 0
	}
	return &Tracker[K]{owners: make(map[K]string, capacity)}
}

// Claim records owner for key if the key is free. When the key was already
// claimed it returns the prior owner and taken == true and leaves the
// tracker unchanged.
func (t *Tracker[K]) Claim(key K, owner string) (prior string, taken bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prior, ok := t.owners[key]; ok {
		return prior, true
	}
	t.owners[key] = owner
	t.size.Add(1)
	return "", false
}

// Size returns the number of claimed keys.
func (t *Tracker[K]) Size() int64 {
	return t.size.Load()
}
