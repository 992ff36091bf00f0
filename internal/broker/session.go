package broker

import (
	"net"
	"time"

	"golang.org/x/time/rate"

	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/netpoll"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/topic"
)

// 传输类型
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// State 连接状态
type State int

const (
	StateConnected State = iota
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Endpoint 引擎写出数据的连接端点
//
// 所有方法都在事件循环中调用，Write 不得阻塞。
// netpoll.Conn 直接满足该接口；其他传输（WebSocket）通过 Engine.Attach 接入。
type Endpoint interface {
	Write(b []byte) error
	// Pending 已接受但尚未发出的字节数
	Pending() int
	RemoteAddr() net.Addr
	Close(reason error)
}

var _ Endpoint = (*netpoll.Conn)(nil)

// Session 一个客户端连接的引擎侧状态，只在事件循环中访问
type Session struct {
	ID        topic.ConnID
	UUID      string
	Transport string
	Remote    string
	OpenedAt  time.Time

	ep  Endpoint
	tcp *netpoll.Conn // 非 TCP 传输为 nil

	format     packet.Format
	negotiated bool
	state      State
	subs       int

	// in 非 TCP 传输的未消费字节，TCP 的缓冲由 netpoll 管理
	in      []byte
	limiter *rate.Limiter
	logger  corelog.Logger
}

// Format 协商的格式，第一个非空帧之前为 false
func (s *Session) Format() (packet.Format, bool) {
	return s.format, s.negotiated
}

func (s *Session) State() State { return s.state }

// SessionInfo 会话快照，可在事件循环之外使用
type SessionInfo struct {
	ID            uint64    `json:"id"`
	UUID          string    `json:"uuid"`
	Transport     string    `json:"transport"`
	Remote        string    `json:"remote"`
	Format        string    `json:"format,omitempty"`
	State         string    `json:"state"`
	Subscriptions int       `json:"subscriptions"`
	Pending       int       `json:"pending"`
	OpenedAt      time.Time `json:"opened_at"`
}

func (s *Session) info() SessionInfo {
	si := SessionInfo{
		ID:            uint64(s.ID),
		UUID:          s.UUID,
		Transport:     s.Transport,
		Remote:        s.Remote,
		State:         s.state.String(),
		Subscriptions: s.subs,
		Pending:       s.ep.Pending(),
		OpenedAt:      s.OpenedAt,
	}
	if s.negotiated {
		si.Format = s.format.String()
	}
	return si
}
