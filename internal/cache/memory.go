package cache

import (
	"context"
	"sync"
)

// MemoryBackend keeps buckets in process memory. Entries never expire; they
// leave only through Clear.
type MemoryBackend struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
}

type memoryBucket struct {
	version uint64
	entries map[string][]byte
}

var _ Backend = (*MemoryBackend)(nil)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buckets: make(map[string]*memoryBucket)}
}

func (m *MemoryBackend) Get(_ context.Context, bucket, field string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, false, nil
	}
	v, ok := b.entries[field]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryBackend) Version(_ context.Context, bucket string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.buckets[bucket]; ok {
		return b.version, nil
	}
	return 0, nil
}

func (m *MemoryBackend) PutIfVersion(_ context.Context, bucket, field string, value []byte, version uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		b = &memoryBucket{}
		m.buckets[bucket] = b
	}
	if b.version != version {
		return false, nil
	}
	if b.entries == nil {
		b.entries = make(map[string][]byte)
	}
	b.entries[field] = append([]byte(nil), value...)
	return true, nil
}

func (m *MemoryBackend) Clear(_ context.Context, buckets []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range buckets {
		b, ok := m.buckets[name]
		if !ok {
			b = &memoryBucket{}
			m.buckets[name] = b
		}
		b.version++
		b.entries = nil
	}
	return nil
}

// Len returns the number of cached entries across all buckets.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, b := range m.buckets {
		n += len(b.entries)
	}
	return n
}
