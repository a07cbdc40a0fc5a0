// Package ratelimit throttles chat requests per client.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request is allowed for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory implements a per-key sliding-window limiter in process memory.
type Memory struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a new in-memory limiter and starts the background eviction goroutine.
func NewMemory(limit int, window time.Duration) *Memory {
	m := &Memory{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	m.startEviction()
	return m
}

// Allow checks if a request is allowed for the given key.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	recent := m.fresh(m.requests[key], now.Add(-m.window))

	if len(recent) >= m.limit {
		m.requests[key] = recent
		return false, nil
	}

	m.requests[key] = append(recent, now)
	return true, nil
}

// Close stops the eviction goroutine.
func (m *Memory) Close() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Memory) fresh(times []time.Time, cutoff time.Time) []time.Time {
	var out []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// startEviction periodically removes expired keys so the map does not grow
// without bound.
func (m *Memory) startEviction() {
	go func() {
		ticker := time.NewTicker(m.window)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case <-ticker.C:
				m.evict()
			}
		}
	}()
}

func (m *Memory) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.window)
	for key, times := range m.requests {
		fresh := m.fresh(times, cutoff)
		if len(fresh) == 0 {
			delete(m.requests, key)
		} else {
			m.requests[key] = fresh
		}
	}
}
