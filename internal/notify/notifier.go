package notify

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"pubsub-core/internal/core/dispose"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/core/safe"
)

// DefaultBufferSize 待发送事件队列长度
const DefaultBufferSize = 1024

const publishTimeout = 2 * time.Second

type event struct {
	topic   string
	payload interface{}
}

// Notifier 把事件从事件循环转交给后台 goroutine 发布
// Emit 永不阻塞，队列满时丢弃事件并计数
type Notifier struct {
	*dispose.Dispose
	bus     Bus
	queue   chan event
	metrics metrics.Metrics
	logger  corelog.Logger
	done    chan struct{}
}

// NewNotifier 创建通知器，bus 为 nil 时所有事件被忽略
func NewNotifier(parentCtx context.Context, bus Bus, bufferSize int, m metrics.Metrics, logger corelog.Logger) *Notifier {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if m == nil {
		m = metrics.NopMetrics{}
	}
	if logger == nil {
		logger = corelog.Default()
	}

	n := &Notifier{
		bus:     bus,
		metrics: m,
		logger:  logger,
		done:    make(chan struct{}),
	}
	n.Dispose = dispose.New(parentCtx, n.shutdown)
	if bus == nil {
		close(n.done)
		return n
	}
	n.queue = make(chan event, bufferSize)
	safe.Go("notifier", n.run)
	return n
}

// Enabled 是否配置了总线
func (n *Notifier) Enabled() bool {
	return n != nil && n.bus != nil
}

// Bus 返回底层总线，可能为 nil
func (n *Notifier) Bus() Bus {
	return n.bus
}

// Emit 投递事件，不等待发布结果
func (n *Notifier) Emit(topic string, payload interface{}) bool {
	if !n.Enabled() || n.IsClosed() {
		return false
	}
	select {
	case n.queue <- event{topic: topic, payload: payload}:
		return true
	default:
		_ = n.metrics.IncrementCounter(metrics.NotifyDropped, map[string]string{"topic": topic})
		return false
	}
}

// ConnOpened 发送连接建立事件
func (n *Notifier) ConnOpened(e ConnOpenedEvent) bool {
	return n.Emit(TopicConnOpened, e)
}

// ConnClosed 发送连接关闭事件
func (n *Notifier) ConnClosed(e ConnClosedEvent) bool {
	return n.Emit(TopicConnClosed, e)
}

// TopicCreated 发送主题创建事件
func (n *Notifier) TopicCreated(e TopicCreatedEvent) bool {
	return n.Emit(TopicTopicCreated, e)
}

// Ping 检查总线，未配置总线时总是成功
func (n *Notifier) Ping(ctx context.Context) error {
	if !n.Enabled() {
		return nil
	}
	return n.bus.Ping(ctx)
}

func (n *Notifier) run() {
	defer close(n.done)
	ctx := n.Ctx()
	for {
		select {
		case <-ctx.Done():
			n.drain()
			return
		case ev := <-n.queue:
			n.publish(ev)
		}
	}
}

// drain 关闭时尽量发出已排队的事件
func (n *Notifier) drain() {
	for {
		select {
		case ev := <-n.queue:
			n.publish(ev)
		default:
			return
		}
	}
}

func (n *Notifier) publish(ev event) {
	data, err := json.Marshal(ev.payload)
	if err != nil {
		n.logger.Warnf("Notifier: marshal %s event: %v", ev.topic, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := n.bus.Publish(ctx, ev.topic, data); err != nil {
		n.logger.Warnf("Notifier: publish %s event: %v", ev.topic, err)
	}
}

// Close 发出剩余事件后关闭总线
func (n *Notifier) Close() error {
	return n.Dispose.Close().Err()
}

func (n *Notifier) shutdown() error {
	<-n.done
	if n.bus == nil {
		return nil
	}
	return n.bus.Close()
}
