// Package store provides read-only allele-keyed lookups of population and
// pathogenicity data backed by DuckDB, tabix-indexed files or memory.
package store

import (
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/popdata"
)

// AlleleStore is a point-lookup source keyed by AlleleKey. Implementations
// are opened once and safe for concurrent reads. A miss returns false, never
// an error.
type AlleleStore interface {
	Get(key allele.Key) (popdata.Properties, bool)
}

// UnavailableError reports a configured data source that cannot be opened.
type UnavailableError struct {
	Name string
	Path string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store %s unavailable at %s: %v", e.Name, e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Memory is a map-backed store. Put is for construction only.
type Memory struct {
	data map[allele.Key]popdata.Properties
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[allele.Key]popdata.Properties)}
}

// Put merges p into the properties held for key.
func (m *Memory) Put(key allele.Key, p popdata.Properties) {
	if prev, ok := m.data[key]; ok {
		p = prev.Merge(p)
	}
	m.data[key] = p
}

// Get implements AlleleStore.
func (m *Memory) Get(key allele.Key) (popdata.Properties, bool) {
	p, ok := m.data[key]
	return p, ok
}

// Len returns the number of keys held.
func (m *Memory) Len() int {
	return len(m.data)
}

// Memo is a bounded LRU memo. Concurrent misses for the same id share one
// computation.
type Memo[V any] struct {
	mu     sync.Mutex
	cache  *lru.Cache
	group  singleflight.Group
	hits   int64
	misses int64
}

// NewMemo creates a memo holding at most size entries; size <= 0 means
// unbounded.
func NewMemo[V any](size int) *Memo[V] {
	if size < 0 {
		size = 0
	}
	return &Memo[V]{cache: lru.New(size)}
}

// Do returns the cached value for key, computing it with fn on a miss.
// id must identify key uniquely; it groups concurrent callers.
func (m *Memo[V]) Do(key lru.Key, id string, fn func() V) V {
	m.mu.Lock()
	if v, ok := m.cache.Get(key); ok {
		m.hits++
		m.mu.Unlock()
		return v.(V)
	}
	m.misses++
	m.mu.Unlock()

	v, _, _ := m.group.Do(id, func() (interface{}, error) {
		val := fn()
		m.mu.Lock()
		m.cache.Add(key, val)
		m.mu.Unlock()
		return val, nil
	})
	return v.(V)
}

// Stats returns the number of cache hits and misses.
func (m *Memo[V]) Stats() (hits, misses int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

type lookup struct {
	props popdata.Properties
	ok    bool
}

// Cached wraps a store with a Memo keyed by AlleleKey.
type Cached struct {
	inner AlleleStore
	memo  *Memo[lookup]
}

// NewCached decorates inner with a cache of at most size keys.
func NewCached(inner AlleleStore, size int) *Cached {
	return &Cached{inner: inner, memo: NewMemo[lookup](size)}
}

// Get implements AlleleStore.
func (c *Cached) Get(key allele.Key) (popdata.Properties, bool) {
	r := c.memo.Do(key, key.String(), func() lookup {
		p, ok := c.inner.Get(key)
		return lookup{props: p, ok: ok}
	})
	return r.props, r.ok
}

// Stats returns cache hits and misses.
func (c *Cached) Stats() (hits, misses int64) {
	return c.memo.Stats()
}
