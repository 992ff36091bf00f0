package notify

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"pubsub-core/internal/core/dispose"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
)

// DefaultChannelPrefix Redis 频道前缀
const DefaultChannelPrefix = "pubsub:"

// RedisConfig Redis 总线配置
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	PoolSize      int
	ChannelPrefix string
}

// RedisBus 基于 Redis Pub/Sub 的消息总线
type RedisBus struct {
	*dispose.Dispose
	client      *redis.Client
	prefix      string
	pubsub      *redis.PubSub
	subscribers map[string]chan *Message
	mu          sync.RWMutex
	nodeID      string
	closed      bool
}

// NewRedisBus 创建 Redis 总线，连接失败时返回错误
func NewRedisBus(parentCtx context.Context, config *RedisConfig, nodeID string) (*RedisBus, error) {
	if config == nil {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "redis config is required")
	}
	if config.PoolSize <= 0 {
		config.PoolSize = 10
	}
	addr := config.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	prefix := config.ChannelPrefix
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(parentCtx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, coreerrors.Wrapf(err, coreerrors.CodeUnavailable, "connect redis %s", addr)
	}

	b := &RedisBus{
		client:      client,
		prefix:      prefix,
		subscribers: make(map[string]chan *Message),
		nodeID:      nodeID,
	}
	b.Dispose = dispose.New(parentCtx, b.shutdown)

	corelog.Infof("RedisBus initialized for node: %s (addr: %s)", nodeID, addr)
	return b, nil
}

func (r *RedisBus) channel(topic string) string {
	return r.prefix + topic
}

// Publish 序列化为带元数据的 JSON 后发布
func (r *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if r.IsClosed() {
		return coreerrors.ErrServiceClosed
	}

	data, err := json.Marshal(&Message{
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
		NodeID:    r.nodeID,
	})
	if err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeSerializeFailed, "marshal bus message")
	}
	if err := r.client.Publish(ctx, r.channel(topic), data).Err(); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "redis publish %s", topic)
	}
	return nil
}

// Subscribe 订阅频道，每个频道只允许一个本地订阅者
func (r *RedisBus) Subscribe(ctx context.Context, topic string) (<-chan *Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, coreerrors.ErrServiceClosed
	}
	if _, exists := r.subscribers[topic]; exists {
		return nil, coreerrors.Newf(coreerrors.CodeInvalidParam, "already subscribed to topic: %s", topic)
	}

	ch := make(chan *Message, 100)
	r.subscribers[topic] = ch

	first := r.pubsub == nil
	if first {
		r.pubsub = r.client.Subscribe(r.Ctx())
	}
	if err := r.pubsub.Subscribe(ctx, r.channel(topic)); err != nil {
		delete(r.subscribers, topic)
		close(ch)
		return nil, coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "redis subscribe %s", topic)
	}
	if first {
		go r.receiveLoop(r.pubsub)
	}

	corelog.Debugf("RedisBus: subscribed to %s (total: %d)", topic, len(r.subscribers))
	return ch, nil
}

func (r *RedisBus) receiveLoop(ps *redis.PubSub) {
	for msg := range ps.Channel() {
		var m Message
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			corelog.Warnf("RedisBus: dropping undecodable message on %s: %v", msg.Channel, err)
			continue
		}

		r.mu.RLock()
		if ch, ok := r.subscribers[m.Topic]; ok {
			select {
			case ch <- &m:
			default:
				corelog.Warnf("RedisBus: subscriber channel full for topic %s, dropping message", m.Topic)
			}
		}
		r.mu.RUnlock()
	}
}

// Unsubscribe 取消订阅并关闭本地通道
func (r *RedisBus) Unsubscribe(ctx context.Context, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return coreerrors.ErrServiceClosed
	}
	ch, ok := r.subscribers[topic]
	if !ok {
		return coreerrors.Newf(coreerrors.CodeNotFound, "not subscribed to topic: %s", topic)
	}
	if r.pubsub != nil {
		if err := r.pubsub.Unsubscribe(ctx, r.channel(topic)); err != nil {
			corelog.Warnf("RedisBus: failed to unsubscribe %s: %v", topic, err)
		}
	}
	close(ch)
	delete(r.subscribers, topic)
	return nil
}

// Ping 检查 Redis 连接
func (r *RedisBus) Ping(ctx context.Context) error {
	if r.IsClosed() {
		return coreerrors.ErrServiceClosed
	}
	if err := r.client.Ping(ctx).Err(); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeUnavailable, "redis ping")
	}
	return nil
}

// Close 关闭总线
func (r *RedisBus) Close() error {
	return r.Dispose.Close().Err()
}

func (r *RedisBus) shutdown() error {
	r.mu.Lock()
	r.closed = true
	if r.pubsub != nil {
		if err := r.pubsub.Close(); err != nil {
			corelog.Warnf("RedisBus: failed to close pubsub: %v", err)
		}
	}
	for _, ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = make(map[string]chan *Message)
	r.mu.Unlock()

	corelog.Infof("RedisBus closed for node: %s", r.nodeID)
	return r.client.Close()
}

// SubscriberCount 本地订阅者数量
func (r *RedisBus) SubscriberCount(topic string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.subscribers[topic]; ok {
		return 1
	}
	return 0
}
