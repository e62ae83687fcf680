package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterAllowsUnderLimit(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "scan:1", 3, time.Minute)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if err := limiter.Increment(ctx, "scan:1", time.Minute); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	result, err := limiter.Check(ctx, "scan:1", 3, time.Minute)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("fourth request should be blocked")
	}
	if result.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", result.RetryAfter)
	}
}

func TestMemoryLimiterCheckDoesNotCount(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		result, err := limiter.Check(ctx, "scan:2", 1, time.Minute)
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("check %d should not consume quota", i)
		}
	}
}

func TestMemoryLimiterWindowExpiry(t *testing.T) {
	limiter := NewMemoryLimiter()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := limiter.Increment(ctx, "scan:3", time.Minute); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}
	result, err := limiter.Check(ctx, "scan:3", 2, time.Minute)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("should be blocked inside window")
	}

	current = current.Add(61 * time.Second)
	result, err = limiter.Check(ctx, "scan:3", 2, time.Minute)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("should be allowed after window passes")
	}
	if result.Count != 0 {
		t.Fatalf("expected pruned count 0, got %d", result.Count)
	}
}

func TestMemoryLimiterSeparateKeys(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	if err := limiter.Increment(ctx, "scan:a", time.Minute); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	result, err := limiter.Check(ctx, "scan:b", 1, time.Minute)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("keys should not share quota")
	}
}

func TestMemoryLimiterZeroLimitDisabled(t *testing.T) {
	limiter := NewMemoryLimiter()
	result, err := limiter.Check(context.Background(), "scan:c", 0, time.Minute)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("zero limit should disable limiting")
	}
}
