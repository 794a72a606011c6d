package quota

import (
	"context"
	"sync"
	"time"

	"github.com/munilab/ai-gateway/internal/config"
)

// MemoryStore keeps counters in process memory. It is atomic within one
// process only, so it suits single-instance deployments and tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]map[string]int // day -> key -> used
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store and starts its cleanup goroutine.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		counters: make(map[string]map[string]int),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// AdmitOrDeny implements Store.
func (s *MemoryStore) AdmitOrDeny(_ context.Context, key, day string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.counters[day]
	if !ok {
		bucket = make(map[string]int)
		s.counters[day] = bucket
	}
	used := bucket[key]
	if used >= limit {
		return used, false, nil
	}
	used++
	bucket[key] = used
	return used, true, nil
}

// Ping implements the health check; memory is always reachable.
func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(config.DefaultCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// Stop stops the cleanup goroutine.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// cleanup drops buckets older than the key TTL.
func (s *MemoryStore) cleanup() {
	cutoff := Day(s.now().Add(-config.DefaultQuotaKeyTTL))
	s.mu.Lock()
	defer s.mu.Unlock()
	for day := range s.counters {
		if day < cutoff {
			delete(s.counters, day)
		}
	}
}
