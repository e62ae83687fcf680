package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qrbonus-next/internal/logger"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier Redis PUBLISH 实现的事件发布器
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

// NewRedisNotifier 创建 Redis 发布器
func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

func (n *RedisNotifier) channelName(channel string) string {
	if n.prefix == "" {
		return channel
	}
	return fmt.Sprintf("%s:%s", n.prefix, channel)
}

// Publish 发布事件；失败只告警，不向调用方返回错误
func (n *RedisNotifier) Publish(ctx context.Context, channel string, event Event) {
	if n.client == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorw("realtime_marshal_failed", "error", err, "channel", channel, "event", event.Type)
		return
	}
	if err := n.client.Publish(ctx, n.channelName(channel), payload).Err(); err != nil {
		logger.Warnw("realtime_publish_failed", "error", err, "channel", channel, "event", event.Type)
	}
}
