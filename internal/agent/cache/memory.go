package cache

import (
	"context"
	"sync"
)

// MemoryBackend keeps entries in process memory. Used in tests and when no
// cache file is configured.
type MemoryBackend struct {
	mu      sync.RWMutex
	regions map[string]map[string]*Entry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{regions: make(map[string]map[string]*Entry)}
}

func (m *MemoryBackend) Get(_ context.Context, region, key string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.regions[region][key]
	if !ok {
		return nil, ErrMiss
	}
	return clone(e), nil
}

func (m *MemoryBackend) Put(_ context.Context, region, key string, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.regions[region]
	if !ok {
		r = make(map[string]*Entry)
		m.regions[region] = r
	}
	r[key] = clone(e)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, region, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regions[region], key)
	return nil
}

// Len returns the number of entries in region.
func (m *MemoryBackend) Len(region string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.regions[region])
}

func clone(e *Entry) *Entry {
	return &Entry{
		Status:   e.Status,
		Header:   e.Header.Clone(),
		Body:     append([]byte(nil), e.Body...),
		StoredAt: e.StoredAt,
	}
}
