package memcache

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

// entryOverhead approximates the per-entry cost of the map slot, the entry
// struct and the key/value headers.
const entryOverhead = 64

type entry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) validAt(now time.Time) bool {
	return now.Sub(e.storedAt) < e.ttl
}

// Store is an in-process CacheStore. Entries expire lazily: an expired
// entry is removed by the Get that observes it, there is no sweeper.
type Store struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{items: make(map[string]entry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the stored value; callers may mutate it freely.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.validAt(s.now()) {
		return bytes.Clone(e.value), true
	}

	s.mu.Lock()
	// a concurrent Set may have refreshed the entry since the read lock
	if cur, ok := s.items[key]; ok && !cur.validAt(s.now()) {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return nil, false
}

// Set stores a private copy of value. A non-positive ttl stores nothing.
func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	s.items[key] = entry{value: v, storedAt: s.now(), ttl: ttl}
	s.mu.Unlock()
}

func (s *Store) Invalidate(_ context.Context, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(keys) == 0 {
		s.items = make(map[string]entry)
		return
	}
	for _, k := range keys {
		delete(s.items, k)
	}
}

// Stats reports every entry still held, including expired ones a Get has
// not yet evicted.
func (s *Store) Stats(_ context.Context) ports.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ports.CacheStats{Size: len(s.items), Keys: make([]string, 0, len(s.items))}
	for k, e := range s.items {
		stats.Keys = append(stats.Keys, k)
		stats.ApproxMemoryBytes += int64(len(k) + len(e.value) + entryOverhead)
	}
	sort.Strings(stats.Keys)
	return stats
}

var _ ports.CacheStore = (*Store)(nil)
