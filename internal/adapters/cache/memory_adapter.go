package cache

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/clinicflow/internal/domain/providers"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryAdapter is a process-local CacheProvider used when Redis is disabled
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// NewMemoryAdapter creates an empty in-process cache
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves a value from cache
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	entry, ok := a.entries[key]
	a.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt)) {
		return nil, providers.ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores a value in cache with expiration; zero or negative never expires
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}

	a.mu.Lock()
	a.entries[key] = entry
	a.mu.Unlock()
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	delete(a.entries, key)
	a.mu.Unlock()
	return nil
}
