package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// checkScript 清理窗口外成员后返回 {当前计数, 最早成员时间戳(毫秒)}
var checkScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local count = redis.call("ZCARD", KEYS[1])
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
if #oldest < 2 then
	return {count, 0}
end
return {count, oldest[2]}
`)

// incrementScript 记录一次请求并刷新键过期时间
var incrementScript = redis.NewScript(`
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// RedisLimiter Redis 有序集合实现的滑动窗口限流器
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter 创建 Redis 限流器
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

func (l *RedisLimiter) buildKey(key string) string {
	if l.prefix == "" {
		return fmt.Sprintf("ratelimit:%s", key)
	}
	return fmt.Sprintf("%s:ratelimit:%s", l.prefix, key)
}

// Check 检查窗口内计数是否达到上限；不增加计数
func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	if l.client == nil || limit <= 0 || window <= 0 {
		return Result{Allowed: true, Remaining: limit}, nil
	}

	now := time.Now()
	cutoff := now.Add(-window).UnixMilli()
	raw, err := checkScript.Run(ctx, l.client, []string{l.buildKey(key)}, cutoff).Result()
	if err != nil {
		return Result{}, err
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) < 2 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %T", raw)
	}
	count, ok := toInt64(values[0])
	if !ok {
		return Result{}, fmt.Errorf("ratelimit: unexpected count reply %T", values[0])
	}
	oldest, _ := toInt64(values[1])

	result := Result{
		Count:     int(count),
		Remaining: limit - int(count),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if count < int64(limit) {
		result.Allowed = true
		return result, nil
	}

	retryAfter := window
	if oldest > 0 {
		expires := time.UnixMilli(oldest).Add(window)
		if wait := expires.Sub(now); wait > 0 && wait < retryAfter {
			retryAfter = wait
		}
	}
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	result.RetryAfter = retryAfter
	return result, nil
}

// Increment 记录一次请求
func (l *RedisLimiter) Increment(ctx context.Context, key string, window time.Duration) error {
	if l.client == nil || window <= 0 {
		return nil
	}
	now := time.Now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())
	return incrementScript.Run(ctx, l.client,
		[]string{l.buildKey(key)},
		now.UnixMilli(), member, window.Milliseconds(),
	).Err()
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		var parsed int64
		if _, err := fmt.Sscan(v, &parsed); err == nil {
			return parsed, true
		}
		return 0, false
	default:
		return 0, false
	}
}
