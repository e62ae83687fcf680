package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter 进程内滑动窗口限流器；无 Redis 时的降级实现
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

// NewMemoryLimiter 创建内存限流器
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) prune(key string, cutoff time.Time) []time.Time {
	stamps := l.entries[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, key)
		return nil
	}
	l.entries[key] = kept
	return kept
}

// Check 检查窗口内计数是否达到上限；不增加计数
func (l *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{Allowed: true, Remaining: limit}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stamps := l.prune(key, now.Add(-window))
	result := Result{
		Count:     len(stamps),
		Remaining: limit - len(stamps),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if len(stamps) < limit {
		result.Allowed = true
		return result, nil
	}

	retryAfter := stamps[0].Add(window).Sub(now)
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	result.RetryAfter = retryAfter
	return result, nil
}

// Increment 记录一次请求
func (l *MemoryLimiter) Increment(_ context.Context, key string, window time.Duration) error {
	if window <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(key, now.Add(-window))
	l.entries[key] = append(l.entries[key], now)
	return nil
}
