package session

import (
	"context"
	"time"

	"workdash/internal/cache"
)

// MemoryStore keeps sessions in an LRU cache. Idle sessions expire after
// the ttl and the least recently used ones are dropped beyond maxSessions.
type MemoryStore struct {
	cache *cache.LRUCache[*Session]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds a store; opts are passed to the underlying cache.
func NewMemoryStore(maxSessions int, ttl time.Duration, opts ...cache.Option[*Session]) *MemoryStore {
	return &MemoryStore{cache: cache.NewLRUCache(maxSessions, ttl, opts...)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.cache.Set(s.ID, s.Clone())
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Delete(id)
	return nil
}

// CleanExpired lets a cache.Manager sweep idle sessions.
func (m *MemoryStore) CleanExpired() int {
	return m.cache.CleanExpired()
}

// Size returns the number of live sessions.
func (m *MemoryStore) Size() int {
	return m.cache.Size()
}

func (m *MemoryStore) Close() error { return nil }
