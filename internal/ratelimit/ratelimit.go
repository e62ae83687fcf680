package ratelimit

import (
	"context"
	"time"
)

// Result 限流检查结果
type Result struct {
	Allowed    bool
	Count      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter 滑动窗口限流器；检查与计数分离，便于仅对成功请求计数
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
	Increment(ctx context.Context, key string, window time.Duration) error
}
