package websocket

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
)

// ServerConn 服务端 WebSocket 连接，作为引擎端点
//
// 每个帧作为一条二进制消息发出。Write 由事件循环调用，不阻塞：
// 数据进入发送队列，由写协程发出；队列满时返回慢消费者错误。
type ServerConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       corelog.Logger

	out       chan []byte
	pending   atomic.Int64
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	mu        sync.Mutex
	closeCode int
	closeText string
}

func newServerConn(conn *websocket.Conn, queue int, writeTimeout time.Duration, logger corelog.Logger) *ServerConn {
	if queue <= 0 {
		queue = 256
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &ServerConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
		out:          make(chan []byte, queue),
		closed:       make(chan struct{}),
		done:         make(chan struct{}),
		closeCode:    websocket.CloseNormalClosure,
	}
}

// Write 排队一个帧
func (c *ServerConn) Write(b []byte) error {
	select {
	case <-c.closed:
		return coreerrors.ErrPeerClosed
	default:
	}

	frame := make([]byte, len(b))
	copy(frame, b)

	c.pending.Add(int64(len(frame)))
	select {
	case c.out <- frame:
		return nil
	default:
		c.pending.Add(-int64(len(frame)))
		return coreerrors.Wrapf(coreerrors.ErrSlowConsumer, coreerrors.CodeSlowConsumer,
			"websocket send queue full (%d frames)", cap(c.out))
	}
}

// Pending 已排队未发出的字节数
func (c *ServerConn) Pending() int {
	return int(c.pending.Load())
}

// RemoteAddr 对端地址
func (c *ServerConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close 请求关闭，关闭帧和底层连接由写协程处理
func (c *ServerConn) Close(reason error) {
	c.closeOnce.Do(func() {
		code, text := closeCodeFor(reason)
		c.mu.Lock()
		c.closeCode, c.closeText = code, text
		c.mu.Unlock()
		close(c.closed)
	})
}

// Done 写协程退出且底层连接关闭后关闭
func (c *ServerConn) Done() <-chan struct{} {
	return c.done
}

// writeLoop 写协程，写失败时通过 onError 通知
func (c *ServerConn) writeLoop(onError func(error)) {
	defer close(c.done)
	defer c.conn.Close()

	for {
		select {
		case frame := <-c.out:
			c.pending.Add(-int64(len(frame)))
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.logger.Debugf("WebSocket: write failed: %v", err)
				c.Close(err)
				onError(coreerrors.Wrap(err, coreerrors.CodePeerReset, "websocket write"))
				return
			}
		case <-c.closed:
			c.mu.Lock()
			code, text := c.closeCode, c.closeText
			c.mu.Unlock()
			msg := websocket.FormatCloseMessage(code, text)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}
	}
}

// closeCodeFor 关闭原因映射为 WebSocket 关闭码
func closeCodeFor(reason error) (int, string) {
	if reason == nil {
		return websocket.CloseNormalClosure, ""
	}
	switch coreerrors.GetCode(reason) {
	case coreerrors.CodePeerClosed, coreerrors.CodeServiceClosed:
		return websocket.CloseGoingAway, ""
	case coreerrors.CodeConnLimit:
		return websocket.CloseTryAgainLater, "connection limit reached"
	case coreerrors.CodeSlowConsumer:
		return websocket.ClosePolicyViolation, "slow consumer"
	case coreerrors.CodeMalformedFrame, coreerrors.CodeUnknownFormat, coreerrors.CodeUnknownCommand,
		coreerrors.CodeFrameTooLarge, coreerrors.CodeProtocolError:
		return websocket.CloseProtocolError, string(coreerrors.GetCode(reason))
	default:
		return websocket.CloseInternalServerErr, ""
	}
}
