//go:build linux

package netpoll

import (
	"encoding/binary"
	"errors"

	"golang.org/x/sys/unix"

	coreerrors "pubsub-core/internal/core/errors"
)

// epoller 基于 epoll 的 poller，使用 eventfd 唤醒
type epoller struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "epoll_create1")
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "eventfd")
	}
	p := &epoller{epfd: epfd, wakefd: wakefd}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}); err != nil {
		p.close()
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "register eventfd")
	}
	return p, nil
}

func toEpoll(ev Event) uint32 {
	var out uint32
	if ev&EventRead != 0 {
		out |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if ev&EventWrite != 0 {
		out |= unix.EPOLLOUT
	}
	return out
}

func (p *epoller) add(fd int, ev Event) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: toEpoll(ev), Fd: int32(fd)})
}

func (p *epoller) modify(fd int, _, ev Event) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: toEpoll(ev), Fd: int32(fd)})
}

func (p *epoller) remove(fd int, _ Event) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epoller) wait(events []readyEvent) (int, error) {
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]

	n, err := unix.EpollWait(p.epfd, raw, -1)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, coreerrors.Wrap(err, coreerrors.CodeInternal, "epoll_wait")
	}

	count := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)
		if fd == p.wakefd {
			p.drain()
			continue
		}
		var ev Event
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0 {
			ev |= EventRead
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			ev |= EventWrite
		}
		if raw[i].Events&(unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			ev |= EventHup
		}
		events[count] = readyEvent{fd: fd, ev: ev}
		count++
	}
	return count, nil
}

func (p *epoller) drain() {
	var buf [8]byte
	for {
		if _, err := unix.Read(p.wakefd, buf[:]); err != nil {
			return
		}
	}
}

func (p *epoller) wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(p.wakefd, buf[:])
	if errors.Is(err, unix.EAGAIN) {
		// 计数器已满，说明已有未处理的唤醒
		return nil
	}
	return err
}

func (p *epoller) close() error {
	unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}
