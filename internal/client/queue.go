// Package client 提供连接 broker 的队列客户端
package client

import (
	"context"
	"net"
	"sync"
	"time"

	"pubsub-core/internal/core/dispose"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/safe"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/packet/builder"
	"pubsub-core/internal/packet/parser"
)

// Kind 队列类型
type Kind int

const (
	// Consumer 建立连接后立即订阅主题
	Consumer Kind = iota + 1
	// Producer 只发布
	Producer
)

func (k Kind) String() string {
	switch k {
	case Consumer:
		return "consumer"
	case Producer:
		return "producer"
	default:
		return "unknown"
	}
}

const (
	defaultDialTimeout = 5 * time.Second
	defaultInboxSize   = 1024
)

// QueueOptions 队列选项
type QueueOptions struct {
	Topic  string
	Format packet.Format
	Kind   Kind

	DialTimeout time.Duration
	// InboxSize 未被 Pull 取走的发布数上限，满时停止读取连接
	InboxSize int
	Logger    corelog.Logger
}

// Delivery 收到的一条发布
type Delivery struct {
	Topic string
	Value string
}

// Queue 一个连接上的队列，连接的格式在创建时固定
//
// Push/Cancel 只写出帧不等待应答；Pull 阻塞直到收到发布。
// 所有方法可并发调用。
type Queue struct {
	*dispose.Dispose

	opts   QueueOptions
	conn   net.Conn
	logger corelog.Logger

	writeMu sync.Mutex
	listMu  sync.Mutex

	inbox chan Delivery
	lists chan []string
	// stale 已超时放弃、应答尚未到达的列表请求数，由 staleMu 与 lists 的投递一起保护
	staleMu sync.Mutex
	stale   int

	errMu   sync.Mutex
	readErr error
	done    chan struct{}
}

// Dial 连接 broker，Consumer 类型在返回前发出订阅
func Dial(ctx context.Context, addr string, opts QueueOptions) (*Queue, error) {
	if !opts.Format.Valid() {
		return nil, coreerrors.Wrapf(coreerrors.ErrUnknownFormat, coreerrors.CodeInvalidParam, "format %d", opts.Format)
	}
	if opts.Kind == 0 {
		opts.Kind = Consumer
	}
	if opts.Kind == Consumer && opts.Topic == "" {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "consumer queue requires a topic")
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = defaultInboxSize
	}
	if opts.Logger == nil {
		opts.Logger = corelog.Default()
	}

	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "dial %s", addr)
	}

	q := &Queue{
		opts:   opts,
		conn:   conn,
		logger: opts.Logger.WithField("topic", opts.Topic),
		inbox:  make(chan Delivery, opts.InboxSize),
		lists:  make(chan []string, 1),
		done:   make(chan struct{}),
	}
	q.Dispose = dispose.New(context.Background(), conn.Close)

	if opts.Kind == Consumer {
		if err := q.send(packet.Subscribe{Topic: opts.Topic}); err != nil {
			q.Close()
			return nil, err
		}
	}

	safe.Go("queue-reader", q.readLoop)
	q.logger.Debugf("Queue: %s connected to %s (%s)", opts.Kind, addr, opts.Format)
	return q, nil
}

// NewJSONQueue 创建 JSON 格式的队列
func NewJSONQueue(ctx context.Context, addr, topic string, kind Kind) (*Queue, error) {
	return Dial(ctx, addr, QueueOptions{Topic: topic, Format: packet.FormatJSON, Kind: kind})
}

// NewXMLQueue 创建 XML 格式的队列
func NewXMLQueue(ctx context.Context, addr, topic string, kind Kind) (*Queue, error) {
	return Dial(ctx, addr, QueueOptions{Topic: topic, Format: packet.FormatXML, Kind: kind})
}

// NewMsgpackQueue 创建 msgpack 格式的队列
func NewMsgpackQueue(ctx context.Context, addr, topic string, kind Kind) (*Queue, error) {
	return Dial(ctx, addr, QueueOptions{Topic: topic, Format: packet.FormatMsgpack, Kind: kind})
}

// Topic 队列主题
func (q *Queue) Topic() string { return q.opts.Topic }

// Format 连接格式
func (q *Queue) Format() packet.Format { return q.opts.Format }

// Push 向队列主题发布
func (q *Queue) Push(value string) error {
	return q.PushTo(q.opts.Topic, value)
}

// PushTo 向指定主题发布
func (q *Queue) PushTo(topic, value string) error {
	if topic == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "publish requires a topic")
	}
	return q.send(packet.Publish{Topic: topic, Value: value})
}

// Subscribe 追加订阅
func (q *Queue) Subscribe(topic string) error {
	return q.send(packet.Subscribe{Topic: topic})
}

// Cancel 取消队列主题的订阅
func (q *Queue) Cancel() error {
	return q.CancelTopic(q.opts.Topic)
}

// CancelTopic 取消指定主题的订阅
func (q *Queue) CancelTopic(topic string) error {
	if topic == "" {
		return coreerrors.New(coreerrors.CodeInvalidParam, "cancel requires a topic")
	}
	return q.send(packet.Cancel{Topic: topic})
}

// Pull 阻塞等待下一条发布
func (q *Queue) Pull(ctx context.Context) (string, string, error) {
	select {
	case d := <-q.inbox:
		return d.Topic, d.Value, nil
	default:
	}
	select {
	case d := <-q.inbox:
		return d.Topic, d.Value, nil
	case <-q.done:
		return "", "", q.err()
	case <-ctx.Done():
		return "", "", coreerrors.Wrap(ctx.Err(), coreerrors.CodeTimeout, "pull")
	}
}

// ListTopics 请求主题列表并等待应答
func (q *Queue) ListTopics(ctx context.Context) ([]string, error) {
	q.listMu.Lock()
	defer q.listMu.Unlock()

	if err := q.send(packet.ListTopics{}); err != nil {
		return nil, err
	}
	select {
	case topics := <-q.lists:
		return topics, nil
	case <-q.done:
		return nil, q.err()
	case <-ctx.Done():
		q.abandonList()
		return nil, coreerrors.Wrap(ctx.Err(), coreerrors.CodeTimeout, "list topics")
	}
}

// abandonList 放弃当前列表请求，迟到的应答不会交给下一次调用
func (q *Queue) abandonList() {
	q.staleMu.Lock()
	defer q.staleMu.Unlock()
	select {
	case <-q.lists:
	default:
		q.stale++
	}
}

// deliverList 应答按请求顺序到达，先抵消已放弃的请求
func (q *Queue) deliverList(topics []string) {
	q.staleMu.Lock()
	defer q.staleMu.Unlock()
	if q.stale > 0 {
		q.stale--
		q.logger.Debugf("Queue: late topic list discarded")
		return
	}
	select {
	case q.lists <- topics:
	default:
		q.logger.Warnf("Queue: unsolicited topic list dropped")
	}
}

// Close 关闭连接
func (q *Queue) Close() error {
	return q.Dispose.Close().Err()
}

// Err 连接结束的原因，连接仍可用时为 nil
func (q *Queue) Err() error {
	select {
	case <-q.done:
		return q.err()
	default:
		return nil
	}
}

func (q *Queue) err() error {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.readErr
}

func (q *Queue) send(msg packet.Message) error {
	if q.IsClosed() {
		return coreerrors.ErrServiceClosed
	}
	q.writeMu.Lock()
	defer q.writeMu.Unlock()
	return builder.WriteFrame(q.conn, msg, q.opts.Format)
}

// readLoop 读取应答与发布，空帧被跳过
func (q *Queue) readLoop() {
	var err error
	defer func() {
		if q.IsClosed() {
			err = coreerrors.ErrServiceClosed
		}
		q.errMu.Lock()
		q.readErr = err
		q.errMu.Unlock()
		close(q.done)
		q.Close()
	}()

	ctx := q.Ctx()
	for {
		var msg packet.Message
		_, msg, err = parser.DecodeFrame(q.conn)
		if err != nil {
			return
		}
		switch m := msg.(type) {
		case nil:
			continue
		case packet.Publish:
			select {
			case q.inbox <- Delivery{Topic: m.Topic, Value: m.Value}:
			case <-ctx.Done():
				return
			}
		case packet.TopicList:
			q.deliverList(m.Topics)
		default:
			err = coreerrors.Wrapf(coreerrors.ErrProtocolError, coreerrors.CodeProtocolError, "unexpected %s from server", msg.Command())
			return
		}
	}
}
