package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

// RateLimitMiddleware 入口层限流中间件；按 key 的滑动窗口计数，无条件递增
func RateLimitMiddleware(limiter ratelimit.Limiter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}
		window := time.Duration(rule.WindowSeconds) * time.Second

		result, err := limiter.Check(c.Request.Context(), key, rule.MaxRequests, window)
		if err != nil {
			logger.Warnw("rate_limit_middleware_failed", "error", err, "key", key)
			c.Next()
			return
		}
		if err := limiter.Increment(c.Request.Context(), key, window); err != nil {
			logger.Warnw("rate_limit_middleware_increment_failed", "error", err, "key", key)
		}
		if !result.Allowed {
			waitSeconds := int(result.RetryAfter / time.Second)
			if waitSeconds < 1 {
				waitSeconds = rule.WindowSeconds
			}
			msg := rule.Message
			if msg == "" {
				msg = fmt.Sprintf("请求过于频繁，请 %d 秒后重试", waitSeconds)
			}
			response.ErrorWithData(c, response.CodeTooManyRequests, response.KindRateLimited, msg,
				gin.H{"retry_after": waitSeconds})
			c.Abort()
			return
		}

		c.Next()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}
