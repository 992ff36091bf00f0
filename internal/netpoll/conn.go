package netpoll

import (
	"net"

	coreerrors "pubsub-core/internal/core/errors"
)

// Conn 事件循环中的一个 TCP 连接，只能在循环 goroutine 中使用
type Conn struct {
	id      uint64
	fd      int
	loop    *Loop
	handler EventHandler
	local   net.Addr
	remote  net.Addr
	ctx     interface{}

	in       []byte
	out      []byte
	interest Event
	werr     error
	closed   bool
}

func (c *Conn) ID() uint64 { return c.id }

func (c *Conn) Fd() int { return c.fd }

func (c *Conn) LocalAddr() net.Addr { return c.local }

func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// Context 返回处理器关联的数据
func (c *Conn) Context() interface{} { return c.ctx }

// SetContext 关联处理器数据
func (c *Conn) SetContext(ctx interface{}) { c.ctx = ctx }

// Pending 尚未写入内核的字节数
func (c *Conn) Pending() int { return len(c.out) }

func (c *Conn) Closed() bool { return c.closed }

// Write 非阻塞写；内核缓冲区满时剩余数据排队，等可写事件再发送
// 写失败后连接不会自动关闭，由调用方决定何时 Close
func (c *Conn) Write(b []byte) error {
	if c.closed {
		return coreerrors.ErrPeerClosed
	}
	if c.werr != nil {
		return c.werr
	}
	if len(c.out) == 0 {
		n, err := sysWrite(c.fd, b)
		if err != nil {
			c.werr = err
			return err
		}
		b = b[n:]
		if len(b) == 0 {
			return nil
		}
	}
	c.out = append(c.out, b...)
	return c.setInterest(EventRead | EventWrite)
}

// flush 可写时发送排队数据
func (c *Conn) flush() error {
	for len(c.out) > 0 {
		n, err := sysWrite(c.fd, c.out)
		if err != nil {
			c.werr = err
			return err
		}
		if n == 0 {
			return nil
		}
		c.out = c.out[n:]
	}
	c.out = nil
	return c.setInterest(EventRead)
}

func (c *Conn) setInterest(ev Event) error {
	if c.interest == ev {
		return nil
	}
	if err := c.loop.poller.modify(c.fd, c.interest, ev); err != nil {
		c.werr = coreerrors.Wrap(err, coreerrors.CodeInternal, "modify interest")
		return c.werr
	}
	c.interest = ev
	return nil
}

func (c *Conn) serve(ev Event) {
	if ev&EventWrite != 0 {
		if err := c.flush(); err != nil {
			c.Close(err)
			return
		}
	}
	if ev&(EventRead|EventHup) != 0 {
		c.read()
	}
}

// read 读取一次并交给处理器
func (c *Conn) read() {
	n, err := sysRead(c.fd, c.loop.readBuf)
	if err != nil {
		c.Close(err)
		return
	}
	if n == 0 {
		return
	}

	c.in = append(c.in, c.loop.readBuf[:n]...)
	consumed, err := c.handler.OnData(c, c.in)
	if c.closed {
		return
	}
	if err != nil {
		c.Close(err)
		return
	}

	switch {
	case consumed >= len(c.in):
		c.in = c.in[:0]
	case consumed > 0:
		rest := copy(c.in, c.in[consumed:])
		c.in = c.in[:rest]
	}
}

// Close 关闭连接，只执行一次：先从循环注销，再通知处理器，最后关闭 fd
func (c *Conn) Close(reason error) {
	if c.closed {
		return
	}
	c.closed = true
	c.loop.deregister(c.fd, c.interest)
	c.handler.OnClose(c, reason)
	_ = sysClose(c.fd)
	c.in = nil
	c.out = nil
}
