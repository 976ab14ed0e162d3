// dnscheck/memory.go
package dnscheck

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache with TTL expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	closed  bool
	stopCh  chan struct{}
	cleanCh chan struct{}
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time // zero = never
}

func (it memoryItem) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

// NewMemoryCache creates a memory cache. When cleanupInterval is positive a
// goroutine drops expired entries at that interval until Close.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	m := &MemoryCache{
		items:   make(map[string]memoryItem, 128),
		stopCh:  make(chan struct{}),
		cleanCh: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.cleanup(cleanupInterval)
	} else {
		close(m.cleanCh)
	}
	return m
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrCacheClosed
	}
	it, ok := m.items[key]
	if !ok || it.expired(time.Now()) {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(it.value))
	copy(out, it.value)
	return out, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrCacheClosed
	}
	it := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = time.Now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the cleanup goroutine.
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.stopCh)
	m.mu.Unlock()

	<-m.cleanCh
	return nil
}

func (m *MemoryCache) cleanup(interval time.Duration) {
	defer close(m.cleanCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *MemoryCache) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, it := range m.items {
		if it.expired(now) {
			delete(m.items, key)
		}
	}
}
