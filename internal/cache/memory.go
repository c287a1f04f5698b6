package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process TTL cache.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
	now  func() time.Time

	stop chan struct{}
	once sync.Once
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// NewMemory creates a cache that sweeps expired entries every sweep interval.
// A zero sweep disables the background cleanup.
func NewMemory(sweep time.Duration) *Memory {
	m := &Memory{
		data: make(map[string]memoryEntry),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if sweep > 0 {
		go m.cleanupLoop(sweep)
	}
	return m
}

func (m *Memory) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok || (!e.expires.IsZero() && !m.now().Before(e.expires)) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// SetBytes stores value. ttl <= 0 keeps it until overwritten.
func (m *Memory) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.data {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.data, k)
		}
	}
}
