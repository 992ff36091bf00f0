// Package broker 发布/订阅引擎
//
// Engine 组合 netpoll 事件循环、协议编解码和主题存储：
// 就绪事件 → 解码 → 命令分发 → 存储变更 →（发布时）按订阅者格式编码并写回。
// 引擎的所有状态只在事件循环 goroutine 中访问，其他 goroutine 通过 Loop.Call 投递任务。
package broker

import (
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/netpoll"
	"pubsub-core/internal/notify"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/packet/builder"
	"pubsub-core/internal/packet/parser"
	"pubsub-core/internal/topic"
)

// DefaultMaxPendingWrite 单连接未发出字节上限
const DefaultMaxPendingWrite = 4 << 20

// Options 引擎配置
type Options struct {
	FanoutMode topic.FanoutMode
	// MaxConnections 0 表示不限制
	MaxConnections int
	// MaxPendingWrite 超过后按慢消费者断开；负数表示不限制
	MaxPendingWrite int
	// RetainOnSubscribe 新订阅立即收到主题最新值
	RetainOnSubscribe bool
	// PublishRate 每连接每秒发布数，0 表示不限制
	PublishRate  float64
	PublishBurst int

	Metrics  metrics.Metrics
	Notifier *notify.Notifier
	Logger   corelog.Logger
}

// Engine 发布/订阅引擎
type Engine struct {
	opts     Options
	loop     *netpoll.Loop
	store    *topic.Store
	sessions map[topic.ConnID]*Session
	nextID   topic.ConnID

	metrics  metrics.Metrics
	notifier *notify.Notifier
	logger   corelog.Logger
}

// New 创建引擎，引擎绑定在 loop 上
func New(loop *netpoll.Loop, opts Options) *Engine {
	if opts.MaxPendingWrite == 0 {
		opts.MaxPendingWrite = DefaultMaxPendingWrite
	}
	if opts.PublishRate > 0 && opts.PublishBurst <= 0 {
		opts.PublishBurst = int(opts.PublishRate)
		if opts.PublishBurst < 1 {
			opts.PublishBurst = 1
		}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = corelog.Default()
	}

	e := &Engine{
		opts:     opts,
		loop:     loop,
		sessions: make(map[topic.ConnID]*Session),
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
	e.store = topic.NewStore(topic.Options{
		Mode:           opts.FanoutMode,
		Logger:         opts.Logger,
		OnTopicCreated: e.topicCreated,
	})
	return e
}

// Loop 返回引擎所在的事件循环
func (e *Engine) Loop() *netpoll.Loop { return e.loop }

// Listen 在事件循环上监听 TCP 端口，必须在 Loop.Run 之前调用
func (e *Engine) Listen(host string, port, backlog int) (*net.TCPAddr, error) {
	return e.loop.Listen(host, port, backlog, e)
}

// OnOpen 实现 netpoll.EventHandler
func (e *Engine) OnOpen(c *netpoll.Conn) error {
	if err := e.admit(); err != nil {
		return err
	}
	s := e.open(c, TransportTCP)
	s.tcp = c
	c.SetContext(s)
	return nil
}

// OnData 实现 netpoll.EventHandler
func (e *Engine) OnData(c *netpoll.Conn, in []byte) (int, error) {
	s, ok := c.Context().(*Session)
	if !ok {
		return len(in), coreerrors.New(coreerrors.CodeInternal, "connection without session")
	}
	return e.process(s, in)
}

// OnClose 实现 netpoll.EventHandler，此时连接已从事件循环注销
func (e *Engine) OnClose(c *netpoll.Conn, err error) {
	if s, ok := c.Context().(*Session); ok {
		e.release(s, err)
	}
}

// admit 检查连接数上限
func (e *Engine) admit() error {
	if e.opts.MaxConnections > 0 && len(e.sessions) >= e.opts.MaxConnections {
		_ = e.metrics.IncrementCounter(metrics.ConnectionsRefused, nil)
		e.logger.Warnf("Engine: connection limit %d reached, refusing", e.opts.MaxConnections)
		return coreerrors.ErrConnLimit
	}
	return nil
}

func (e *Engine) open(ep Endpoint, transport string) *Session {
	e.nextID++
	s := &Session{
		ID:        e.nextID,
		UUID:      uuid.NewString(),
		Transport: transport,
		OpenedAt:  time.Now(),
		ep:        ep,
		state:     StateConnected,
	}
	if addr := ep.RemoteAddr(); addr != nil {
		s.Remote = addr.String()
	}
	if e.opts.PublishRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(e.opts.PublishRate), e.opts.PublishBurst)
	}
	s.logger = e.logger.WithFields(map[string]interface{}{
		"conn_id": uint64(s.ID),
		"remote":  s.Remote,
	})
	e.sessions[s.ID] = s

	_ = e.metrics.IncrementCounter(metrics.ConnectionsTotal, map[string]string{"transport": transport})
	_ = e.metrics.SetGauge(metrics.ConnectionsActive, float64(len(e.sessions)), nil)
	e.notifier.ConnOpened(notify.ConnOpenedEvent{
		ConnID:    uint64(s.ID),
		SessionID: s.UUID,
		Remote:    s.Remote,
		Transport: transport,
		Timestamp: s.OpenedAt.Unix(),
	})
	s.logger.Infof("Engine: %s connection opened (session %s)", transport, s.UUID)
	return s
}

// process 解析已缓冲的字节并逐帧分发，返回已消费的字节数
// 返回错误时连接应当关闭
func (e *Engine) process(s *Session, in []byte) (int, error) {
	consumed := 0
	for consumed < len(in) && s.state != StateClosed {
		n, format, msg, err := parser.ScanFrame(in[consumed:])
		if err != nil {
			_ = e.metrics.IncrementCounter(metrics.DecodeErrors, map[string]string{"code": string(coreerrors.GetCode(err))})
			return consumed, err
		}
		if n == 0 {
			break
		}
		consumed += n
		_ = e.metrics.AddCounter(metrics.BytesIn, float64(n), nil)
		if msg == nil {
			continue
		}

		if !s.negotiated {
			s.format = format
			s.negotiated = true
			s.logger = s.logger.WithField("format", format.String())
		}
		_ = e.metrics.IncrementCounter(metrics.FramesIn, map[string]string{"format": format.String()})

		if err := e.dispatch(s, msg); err != nil {
			return consumed, err
		}
	}
	return consumed, nil
}

func (e *Engine) dispatch(s *Session, msg packet.Message) error {
	switch m := msg.(type) {
	case packet.Subscribe:
		return e.subscribe(s, m.Topic)
	case packet.Publish:
		e.publish(s, m.Topic, m.Value)
		return nil
	case packet.Cancel:
		e.cancel(s, m.Topic)
		return nil
	case packet.ListTopics:
		return e.send(s, packet.TopicList{Topics: e.store.ListTopics()})
	default:
		return coreerrors.Newf(coreerrors.CodeProtocolError, "unexpected %q from client", msg.Command())
	}
}

func (e *Engine) subscribe(s *Session, name string) error {
	if !e.store.Subscribe(name, s.ID, s.format) {
		s.logger.Debugf("Engine: already subscribed to %q", name)
		return nil
	}
	s.subs++
	s.state = StateSubscribed
	_ = e.metrics.AddGauge(metrics.Subscriptions, 1, nil)
	s.logger.Debugf("Engine: subscribed to %q", name)

	if e.opts.RetainOnSubscribe {
		if value, ok := e.store.LastValue(name); ok {
			return e.send(s, packet.Publish{Topic: name, Value: value})
		}
	}
	return nil
}

func (e *Engine) cancel(s *Session, name string) {
	if !e.store.Unsubscribe(name, s.ID) {
		s.logger.Debugf("Engine: cancel for %q ignored, not subscribed", name)
		return
	}
	s.subs--
	if s.subs == 0 {
		s.state = StateConnected
	}
	_ = e.metrics.AddGauge(metrics.Subscriptions, -1, nil)
	s.logger.Debugf("Engine: unsubscribed from %q", name)
}

// send 按会话格式编码并写出
func (e *Engine) send(s *Session, msg packet.Message) error {
	frame, err := builder.Encode(msg, s.format)
	if err != nil {
		return err
	}
	return e.write(s, frame, s.format)
}

// write 写出一帧并检查未发出字节上限
func (e *Engine) write(s *Session, frame []byte, format packet.Format) error {
	if err := s.ep.Write(frame); err != nil {
		return err
	}
	_ = e.metrics.IncrementCounter(metrics.FramesOut, map[string]string{"format": format.String()})
	_ = e.metrics.AddCounter(metrics.BytesOut, float64(len(frame)), nil)

	if limit := e.opts.MaxPendingWrite; limit > 0 && s.ep.Pending() > limit {
		return coreerrors.Wrapf(coreerrors.ErrSlowConsumer, coreerrors.CodeSlowConsumer,
			"%d bytes pending, limit %d", s.ep.Pending(), limit)
	}
	return nil
}

// closeSession 关闭会话，TCP 连接由 netpoll 回调 OnClose 完成释放
func (e *Engine) closeSession(s *Session, reason error) {
	if s.state == StateClosed {
		return
	}
	if s.tcp != nil {
		s.tcp.Close(reason)
		return
	}
	e.release(s, reason)
	s.ep.Close(reason)
}

// release 会话的唯一释放路径：移出会话表，清理订阅，记录指标并发出事件
func (e *Engine) release(s *Session, reason error) {
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	delete(e.sessions, s.ID)

	topics := e.store.ConnTopics(s.ID)
	removed := e.store.RemoveConnection(s.ID)
	s.subs = 0
	s.in = nil

	_ = e.metrics.SetGauge(metrics.ConnectionsActive, float64(len(e.sessions)), nil)
	_ = e.metrics.AddGauge(metrics.Subscriptions, -float64(removed), nil)
	_ = e.metrics.IncrementCounter(metrics.ConnectionsClosed, map[string]string{"reason": reasonLabel(reason)})

	ev := notify.ConnClosedEvent{
		ConnID:    uint64(s.ID),
		SessionID: s.UUID,
		Remote:    s.Remote,
		Topics:    topics,
		Timestamp: time.Now().Unix(),
	}
	if reason != nil {
		ev.Reason = reason.Error()
	}
	e.notifier.ConnClosed(ev)

	switch {
	case reason == nil, coreerrors.IsDisconnect(reason), coreerrors.IsCode(reason, coreerrors.CodeServiceClosed):
		s.logger.Infof("Engine: connection closed (%d subscriptions removed)", removed)
	default:
		s.logger.WithError(reason).Warnf("Engine: connection torn down (%d subscriptions removed)", removed)
	}
}

func (e *Engine) topicCreated(name string) {
	_ = e.metrics.SetGauge(metrics.Topics, float64(e.store.Stats().Topics), nil)
	e.notifier.TopicCreated(notify.TopicCreatedEvent{Topic: name, Timestamp: time.Now().Unix()})
}

func reasonLabel(err error) string {
	if err == nil {
		return "none"
	}
	return string(coreerrors.GetCode(err))
}
