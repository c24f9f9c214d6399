package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	snap      Snapshot
	expiresAt time.Time
}

// MemoryBackend is a process-local Backend for single-node deployments
// and tests. Expired items are dropped lazily on read.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]memoryItem)}
}

func (m *MemoryBackend) Get(ctx context.Context, userID string) (*Snapshot, error) {
	m.mu.RLock()
	item, ok := m.items[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if time.Now().After(item.expiresAt) {
		m.mu.Lock()
		delete(m.items, userID)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	snap := item.snap
	return &snap, nil
}

func (m *MemoryBackend) Set(ctx context.Context, userID string, snap *Snapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[userID] = memoryItem{snap: *snap, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

func (m *MemoryBackend) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	var users []string
	for userID, item := range m.items {
		if now.Before(item.expiresAt) {
			users = append(users, userID)
		}
	}
	return users, nil
}

var _ Backend = (*MemoryBackend)(nil)
