package discovery

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSessionsPerVisitor = 16

// MemoryCache remembers page sessions by primary key so returning to a
// view restores it without refetching. Storing a key replaces the previous
// session for that key; sessions never expire by time. It also remembers
// the last filters used, to seed a browse page opened without parameters.
type MemoryCache struct {
	sessions *lru.Cache[string, *PageSession]

	mu          sync.Mutex
	lastFilters *FilterState
}

// NewMemoryCache creates a cache holding up to capacity sessions; when
// full, the least recently used key is dropped.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = defaultSessionsPerVisitor
	}
	sessions, err := lru.New[string, *PageSession](capacity)
	if err != nil {
		panic(err) // only for non-positive sizes
	}
	return &MemoryCache{sessions: sessions}
}

// Get returns a copy of the session stored for key.
func (m *MemoryCache) Get(key string) (*PageSession, bool) {
	s, ok := m.sessions.Get(key)
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Put stores a copy of the session under its primary key.
func (m *MemoryCache) Put(s *PageSession) {
	m.sessions.Add(s.PrimaryKey, s.clone())
}

// Remove drops the session for key.
func (m *MemoryCache) Remove(key string) {
	m.sessions.Remove(key)
}

// Len returns the number of stored sessions.
func (m *MemoryCache) Len() int {
	return m.sessions.Len()
}

// SetLastFilters records the most recent filter state.
func (m *MemoryCache) SetLastFilters(f FilterState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilters = &f
}

// LastFilters returns the most recent filter state, if any.
func (m *MemoryCache) LastFilters() (FilterState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastFilters == nil {
		return FilterState{}, false
	}
	return *m.lastFilters, true
}

// Registry hands out one MemoryCache per visitor and bounds how many
// visitors are remembered.
type Registry struct {
	caches   *lru.Cache[string, *MemoryCache]
	perCache int
	mu       sync.Mutex
}

// NewRegistry creates a registry for up to maxVisitors visitors.
func NewRegistry(maxVisitors, sessionsPerVisitor int) *Registry {
	if maxVisitors <= 0 {
		maxVisitors = 1024
	}
	caches, err := lru.New[string, *MemoryCache](maxVisitors)
	if err != nil {
		panic(err)
	}
	return &Registry{caches: caches, perCache: sessionsPerVisitor}
}

// For returns the visitor's cache, creating it on first use.
func (r *Registry) For(visitorID string) *MemoryCache {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.caches.Get(visitorID); ok {
		return c
	}
	c := NewMemoryCache(r.perCache)
	r.caches.Add(visitorID, c)
	return c
}

// Len returns the number of visitors with a cache.
func (r *Registry) Len() int {
	return r.caches.Len()
}
