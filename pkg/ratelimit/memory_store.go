package ratelimit

import (
	"context"
	"sync"
	"time"
)

// counter tracks one key's fixed window. The window is aligned to the first
// request: once windowStart+window passes, the next increment starts a fresh
// window with count 1.
type counter struct {
	count       int64
	windowStart time.Time
	window      time.Duration
}

// MemoryStore is the local, in-process counter backend. It enforces limits
// only against traffic seen by this process: under local mode a fleet of N
// instances collectively admits up to N times the configured limit. That is
// the documented trade-off of degrading instead of rejecting traffic when
// the shared backend is down.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired counters are removed.
// Set to 0 to disable background cleanup.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.cleanupInterval = interval
	}
}

// NewMemoryStore creates an in-process counter store with background cleanup
// of expired windows.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		counters:        make(map[string]*counter),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cleanupInterval > 0 {
		go s.cleanupLoop()
	}

	return s
}

// Increment implements Store. The whole read-reset-or-bump sequence runs
// under one lock, which preserves the atomicity invariant for concurrent
// callers within this process. It never fails and never blocks on I/O.
func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c, exists := s.counters[key]

	if !exists || now.Sub(c.windowStart) >= c.window {
		c = &counter{
			count:       1,
			windowStart: now,
			window:      window,
		}
		s.counters[key] = c
		return 1, now.Add(window), nil
	}

	c.count++
	return c.count, c.windowStart.Add(c.window), nil
}

// Reset drops the counter for key, if any.
func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)
	return nil
}

// Len returns the number of tracked counters, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.counters)
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, c := range s.counters {
		if now.Sub(c.windowStart) >= c.window {
			delete(s.counters, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}
