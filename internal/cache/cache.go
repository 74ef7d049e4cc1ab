// Package cache holds provider responses for a fresh period and keeps them
// around longer as a fallback for when the provider fails.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Outcome says where a value returned by Get came from.
type Outcome int

const (
	// Miss means the value was fetched by this call or a concurrent one.
	Miss Outcome = iota
	// Hit means a fresh cached value was returned.
	Hit
	// Stale means the fetch failed and an expired value was returned instead.
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Config controls entry lifetimes.
type Config struct {
	// TTL is how long an entry is served without refetching.
	TTL time.Duration

	// StaleTTL is how long after its fetch an entry may stand in for a
	// failed refetch. Entries older than this are dropped. It is raised to
	// TTL when smaller.
	StaleTTL time.Duration

	// CleanupInterval is the minimum time between sweeps (default: 5m).
	CleanupInterval time.Duration

	// Now overrides the clock.
	Now func() time.Time
}

// Stats counts entries by age.
type Stats struct {
	Entries int
	Fresh   int
	Stale   int
}

// Store is a keyed TTL cache. Concurrent misses on one key share a single
// fetch.
type Store[V any] struct {
	ttl      time.Duration
	staleTTL time.Duration
	sweep    time.Duration
	now      func() time.Time

	flights singleflight.Group

	mu        sync.RWMutex
	entries   map[string]entry[V]
	lastSweep time.Time
}

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// New returns an empty store.
func New[V any](cfg Config) *Store[V] {
	s := &Store[V]{
		ttl:      cfg.TTL,
		staleTTL: max(cfg.StaleTTL, cfg.TTL),
		sweep:    cfg.CleanupInterval,
		now:      cfg.Now,
		entries:  make(map[string]entry[V]),
	}
	if s.sweep == 0 {
		s.sweep = 5 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Fresh returns the value stored under key if it is within TTL.
func (s *Store[V]) Fresh(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.fresh(e, s.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Get returns the fresh value for key, or calls fetch and stores its
// result. When fetch fails and an entry younger than StaleTTL exists, that
// entry is returned with Stale and a nil error.
func (s *Store[V]) Get(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, Outcome, error) {
	if v, ok := s.Fresh(key); ok {
		return v, Hit, nil
	}

	type result struct {
		value V
		from  Outcome
	}
	shared, err, _ := s.flights.Do(key, func() (any, error) {
		// A flight that finished between Fresh and Do has already stored.
		if v, ok := s.Fresh(key); ok {
			return result{v, Hit}, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			if old, ok := s.usable(key); ok {
				return result{old, Stale}, nil
			}
			return nil, err
		}
		s.Put(key, v)
		return result{v, Miss}, nil
	})
	if err != nil {
		var zero V
		return zero, Miss, err
	}
	r := shared.(result)
	return r.value, r.from, nil
}

// Put stores v under key as fetched now.
func (s *Store[V]) Put(key string, v V) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{value: v, fetchedAt: now}
	if now.Sub(s.lastSweep) >= s.sweep {
		s.lastSweep = now
		for k, e := range s.entries {
			if now.Sub(e.fetchedAt) > s.staleTTL {
				delete(s.entries, k)
			}
		}
	}
}

// Purge drops every entry.
func (s *Store[V]) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
}

// Stats reports the current entries.
func (s *Store[V]) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	st := Stats{Entries: len(s.entries)}
	for _, e := range s.entries {
		switch {
		case s.fresh(e, now):
			st.Fresh++
		case now.Sub(e.fetchedAt) <= s.staleTTL:
			st.Stale++
		}
	}
	return st
}

func (s *Store[V]) usable(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || s.now().Sub(e.fetchedAt) > s.staleTTL {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) fresh(e entry[V], now time.Time) bool {
	return now.Sub(e.fetchedAt) < s.ttl
}
