// Package netpoll 单线程就绪事件循环
//
// Loop 在一个 goroutine 中拥有监听 socket、注册表和所有连接，
// 唯一的阻塞点是 epoll_wait / kevent。其他 goroutine 通过 Submit 投递任务。
package netpoll

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
)

var errAgain = errors.New("netpoll: would block")

// EventHandler 连接事件处理器，所有回调都在事件循环 goroutine 中执行，不得阻塞
type EventHandler interface {
	// OnOpen 新连接建立，返回错误则立即关闭连接
	OnOpen(c *Conn) error
	// OnData 收到数据，in 为连接的全部未消费字节，返回已消费的字节数
	// in 只在回调期间有效
	OnData(c *Conn, in []byte) (consumed int, err error)
	// OnClose 连接关闭，调用时连接已从循环注销，fd 尚未关闭
	OnClose(c *Conn, err error)
}

// Options 事件循环配置
type Options struct {
	// ReadBufferSize 每次可读事件最多读取的字节数
	ReadBufferSize int
	// MaxEvents 每次等待最多返回的事件数
	MaxEvents int
	Logger    corelog.Logger
}

const (
	DefaultReadBufferSize = 64 * 1024
	DefaultMaxEvents      = 256
	DefaultBacklog        = 4096

	// acceptBatch 一次可读事件最多接受的连接数
	acceptBatch = 128
)

type listener struct {
	fd      int
	addr    *net.TCPAddr
	handler EventHandler
}

// Loop 事件循环
type Loop struct {
	opts   Options
	logger corelog.Logger
	poller poller

	fds       map[int]interface{} // *listener | *Conn
	listeners []*listener
	stale     map[int]struct{}
	readBuf   []byte
	nextID    uint64

	mu      sync.Mutex
	tasks   []func()
	stopped bool

	stopping atomic.Bool
	started  atomic.Bool
	running  atomic.Bool
	done     chan struct{}
}

// NewLoop 创建事件循环
func NewLoop(opts Options) (*Loop, error) {
	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = DefaultReadBufferSize
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultMaxEvents
	}
	if opts.Logger == nil {
		opts.Logger = corelog.Default()
	}

	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	return &Loop{
		opts:    opts,
		logger:  opts.Logger,
		poller:  p,
		fds:     make(map[int]interface{}),
		stale:   make(map[int]struct{}),
		readBuf: make([]byte, opts.ReadBufferSize),
		done:    make(chan struct{}),
	}, nil
}

// Listen 在 host:port 上监听，backlog <= 0 时使用 DefaultBacklog
// 必须在 Run 之前调用，或在循环内（Submit 的任务中）调用
func (l *Loop) Listen(host string, port int, backlog int, handler EventHandler) (*net.TCPAddr, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, coreerrors.Wrapf(err, coreerrors.CodeConfigError, "resolve %s:%d", host, port)
	}

	fd, bound, err := sysListen(addr, backlog)
	if err != nil {
		return nil, err
	}
	if err := l.poller.add(fd, EventRead); err != nil {
		_ = sysClose(fd)
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "register listener")
	}

	ln := &listener{fd: fd, addr: bound, handler: handler}
	l.fds[fd] = ln
	l.listeners = append(l.listeners, ln)
	l.logger.Infof("Loop: listening on %s (backlog %d)", bound, backlog)
	return bound, nil
}

// Submit 投递任务到事件循环执行，可在任意 goroutine 调用
func (l *Loop) Submit(task func()) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return coreerrors.ErrServiceClosed
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	if err := l.poller.wake(); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeInternal, "wake loop")
	}
	return nil
}

// Call 投递任务并等待执行完成
func (l *Loop) Call(ctx context.Context, task func()) error {
	done := make(chan struct{})
	if err := l.Submit(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return coreerrors.Wrap(ctx.Err(), coreerrors.CodeTimeout, "loop call")
	}
}

// Stop 请求事件循环退出
func (l *Loop) Stop() {
	if l.stopping.CompareAndSwap(false, true) {
		_ = l.poller.wake()
	}
}

// Close 停止循环并等待监听 socket、连接和 poller 释放
// 从未运行的循环在调用方 goroutine 中完成清理。不得在循环内调用
func (l *Loop) Close() {
	l.Stop()
	if l.started.CompareAndSwap(false, true) {
		l.shutdown()
		close(l.done)
		return
	}
	<-l.done
}

// Done 事件循环退出后关闭
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Running 事件循环是否在运行
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Run 运行事件循环直到 ctx 取消、Stop 被调用或 poller 出错
// 退出时关闭所有连接和监听 socket
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return coreerrors.New(coreerrors.CodeInternal, "loop already started")
	}
	l.running.Store(true)
	defer close(l.done)
	defer l.running.Store(false)

	stop := context.AfterFunc(ctx, l.Stop)
	defer stop()

	events := make([]readyEvent, l.opts.MaxEvents)
	for {
		l.runTasks()
		if l.stopping.Load() {
			l.shutdown()
			return nil
		}

		n, err := l.poller.wait(events)
		if err != nil {
			l.logger.Errorf("Loop: poller failed: %v", err)
			l.shutdown()
			return err
		}

		clear(l.stale)
		for _, ev := range events[:n] {
			if _, gone := l.stale[ev.fd]; gone {
				continue
			}
			switch h := l.fds[ev.fd].(type) {
			case *listener:
				l.accept(h)
			case *Conn:
				h.serve(ev.ev)
			}
		}
	}
}

func (l *Loop) runTasks() {
	l.mu.Lock()
	tasks := l.tasks
	l.tasks = nil
	l.mu.Unlock()

	for _, task := range tasks {
		task()
	}
}

func (l *Loop) accept(ln *listener) {
	for i := 0; i < acceptBatch; i++ {
		fd, remote, err := sysAccept(ln.fd)
		if err != nil {
			if !errors.Is(err, errAgain) {
				l.logger.Warnf("Loop: accept on %s failed: %v", ln.addr, err)
			}
			return
		}

		l.nextID++
		c := &Conn{
			id:       l.nextID,
			fd:       fd,
			loop:     l,
			handler:  ln.handler,
			local:    ln.addr,
			remote:   remote,
			interest: EventRead,
		}
		if err := l.poller.add(fd, EventRead); err != nil {
			l.logger.Errorf("Loop: register fd %d failed: %v", fd, err)
			_ = sysClose(fd)
			continue
		}
		l.fds[fd] = c

		if err := ln.handler.OnOpen(c); err != nil {
			c.Close(err)
		}
	}
}

// deregister 从注册表和 poller 中移除 fd，本轮剩余事件被丢弃
func (l *Loop) deregister(fd int, interest Event) {
	if err := l.poller.remove(fd, interest); err != nil {
		l.logger.Debugf("Loop: deregister fd %d: %v", fd, err)
	}
	delete(l.fds, fd)
	l.stale[fd] = struct{}{}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	// 停止后仍执行已投递的任务，Call 的等待方不会悬挂
	l.runTasks()

	for _, h := range l.fds {
		if c, ok := h.(*Conn); ok {
			c.Close(coreerrors.ErrServiceClosed)
		}
	}
	for _, ln := range l.listeners {
		_ = l.poller.remove(ln.fd, EventRead)
		_ = sysClose(ln.fd)
		delete(l.fds, ln.fd)
	}
	l.listeners = nil
	_ = l.poller.close()
	l.logger.Infof("Loop: stopped")
}

// ConnCount 当前连接数，只能在循环内调用
func (l *Loop) ConnCount() int {
	return len(l.fds) - len(l.listeners)
}
