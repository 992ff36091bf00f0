package notify

import (
	"context"
	"sync"
	"time"

	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
)

// MemoryBus 进程内消息总线
type MemoryBus struct {
	subscribers map[string][]chan *Message
	mu          sync.RWMutex
	nodeID      string
	closed      bool
}

// NewMemoryBus 创建内存总线
func NewMemoryBus(nodeID string) *MemoryBus {
	corelog.Infof("MemoryBus initialized for node: %s", nodeID)
	return &MemoryBus{
		subscribers: make(map[string][]chan *Message),
		nodeID:      nodeID,
	}
}

// Publish 发布消息，订阅者通道满时跳过该订阅者
func (m *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return coreerrors.ErrServiceClosed
	}

	subscribers := m.subscribers[topic]
	if len(subscribers) == 0 {
		return nil
	}

	msg := &Message{
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    m.nodeID,
	}
	for _, ch := range subscribers {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			corelog.Warnf("MemoryBus: subscriber channel full for topic %s, skipping", topic)
		}
	}
	return nil
}

// Subscribe 订阅频道
func (m *MemoryBus) Subscribe(ctx context.Context, topic string) (<-chan *Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, coreerrors.ErrServiceClosed
	}
	ch := make(chan *Message, 100)
	m.subscribers[topic] = append(m.subscribers[topic], ch)
	return ch, nil
}

// Unsubscribe 关闭该频道的所有订阅通道
func (m *MemoryBus) Unsubscribe(ctx context.Context, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return coreerrors.ErrServiceClosed
	}
	subscribers, ok := m.subscribers[topic]
	if !ok {
		return coreerrors.Newf(coreerrors.CodeNotFound, "no subscribers for topic: %s", topic)
	}
	for _, ch := range subscribers {
		close(ch)
	}
	delete(m.subscribers, topic)
	return nil
}

// Ping 内存总线未关闭即可用
func (m *MemoryBus) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return coreerrors.ErrServiceClosed
	}
	return nil
}

// Close 关闭总线和所有订阅通道
func (m *MemoryBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for _, subscribers := range m.subscribers {
		for _, ch := range subscribers {
			close(ch)
		}
	}
	m.subscribers = make(map[string][]chan *Message)
	return nil
}

// SubscriberCount 频道订阅者数量
func (m *MemoryBus) SubscriberCount(topic string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers[topic])
}
