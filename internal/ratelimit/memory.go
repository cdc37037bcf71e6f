package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryPruneThreshold bounds how many idle windows accumulate before a sweep.
const memoryPruneThreshold = 4096

type memoryEntry struct {
	window int64
	count  int
}

// MemoryLimiter implements a fixed-window in-memory rate limiter.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*memoryEntry
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		counters: make(map[string]*memoryEntry),
	}
}

// Allow checks whether the request should be allowed in the current second.
func (l *MemoryLimiter) Allow(_ context.Context, key Key, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key.IsZero() {
		return Result{Allowed: true}, nil
	}
	id := key.String()
	sec := now.Unix()
	reset := time.Unix(sec+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.counters) >= memoryPruneThreshold {
		l.prune(sec)
	}
	entry := l.counters[id]
	if entry == nil {
		entry = &memoryEntry{window: sec}
		l.counters[id] = entry
	}
	if entry.window != sec {
		entry.window = sec
		entry.count = 0
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Reset: reset}, nil
}

// prune drops counters from past windows. Callers hold l.mu.
func (l *MemoryLimiter) prune(sec int64) {
	for key, entry := range l.counters {
		if entry.window < sec {
			delete(l.counters, key)
		}
	}
}
