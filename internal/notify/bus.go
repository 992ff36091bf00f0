// Package notify 代理生命周期事件通知（连接建立/关闭、主题创建）
//
// 事件由事件循环以非阻塞方式投递，后台 goroutine 发布到内存总线或 Redis Pub/Sub，
// 供运维侧的外部系统订阅。通知是尽力而为的，队列满时丢弃。
package notify

import (
	"context"
	"time"
)

// Bus 消息总线接口
type Bus interface {
	// Publish 发布消息到指定频道
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe 订阅频道，返回消息通道
	Subscribe(ctx context.Context, topic string) (<-chan *Message, error)

	// Unsubscribe 取消订阅
	Unsubscribe(ctx context.Context, topic string) error

	// Ping 检查总线可用性
	Ping(ctx context.Context) error

	Close() error
}

// Message 总线消息
type Message struct {
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
}

// 事件频道
const (
	TopicConnOpened   = "conn.opened"
	TopicConnClosed   = "conn.closed"
	TopicTopicCreated = "topic.created"
)

// ConnOpenedEvent 连接建立
type ConnOpenedEvent struct {
	ConnID    uint64 `json:"conn_id"`
	SessionID string `json:"session_id"`
	Remote    string `json:"remote"`
	Transport string `json:"transport"`
	Timestamp int64  `json:"timestamp"`
}

// ConnClosedEvent 连接关闭
type ConnClosedEvent struct {
	ConnID    uint64   `json:"conn_id"`
	SessionID string   `json:"session_id"`
	Remote    string   `json:"remote"`
	Reason    string   `json:"reason,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// TopicCreatedEvent 主题创建
type TopicCreatedEvent struct {
	Topic     string `json:"topic"`
	Timestamp int64  `json:"timestamp"`
}
