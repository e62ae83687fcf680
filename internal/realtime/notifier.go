package realtime

import (
	"context"
	"fmt"
	"time"
)

// Event 实时事件
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent 创建事件
func NewEvent(eventType string, data map[string]interface{}) Event {
	return Event{Type: eventType, Timestamp: time.Now(), Data: data}
}

// Notifier 发布接口；只发不等，发布失败不得影响已提交的业务结果
type Notifier interface {
	Publish(ctx context.Context, channel string, event Event)
}

// StoreChannel 门店侧私有频道名
func StoreChannel(storeID uint) string {
	return fmt.Sprintf("private-store.%d", storeID)
}

// UserChannel 顾客侧私有频道名
func UserChannel(userID uint) string {
	return fmt.Sprintf("private-user.%d", userID)
}

// NoopNotifier 空实现；未配置 Redis 时使用
type NoopNotifier struct{}

// Publish 丢弃事件
func (NoopNotifier) Publish(context.Context, string, Event) {}
