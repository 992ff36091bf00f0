//go:build darwin || freebsd

package netpoll

import (
	"errors"

	"golang.org/x/sys/unix"

	coreerrors "pubsub-core/internal/core/errors"
)

const wakeIdent = 0

// kqueuePoller 基于 kqueue 的 poller，使用 EVFILT_USER 唤醒
type kqueuePoller struct {
	kq  int
	raw []unix.Kevent_t
}

func newPoller() (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "kqueue")
	}
	unix.CloseOnExec(kq)

	p := &kqueuePoller{kq: kq}
	change := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}}
	if _, err := unix.Kevent(kq, change, nil, nil); err != nil {
		unix.Close(kq)
		return nil, coreerrors.Wrap(err, coreerrors.CodeInternal, "register EVFILT_USER")
	}
	return p, nil
}

// changes 计算从 old 到 ev 需要的 kevent 变更
func changes(fd int, old, ev Event) []unix.Kevent_t {
	var out []unix.Kevent_t
	diff := func(mask Event, filter int) {
		var flags int
		switch {
		case ev&mask != 0 && old&mask == 0:
			flags = unix.EV_ADD
		case ev&mask == 0 && old&mask != 0:
			flags = unix.EV_DELETE
		default:
			return
		}
		var k unix.Kevent_t
		unix.SetKevent(&k, fd, filter, flags)
		out = append(out, k)
	}
	diff(EventRead, unix.EVFILT_READ)
	diff(EventWrite, unix.EVFILT_WRITE)
	return out
}

func (p *kqueuePoller) apply(fd int, old, ev Event) error {
	ch := changes(fd, old, ev)
	if len(ch) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, ch, nil, nil)
	return err
}

func (p *kqueuePoller) add(fd int, ev Event) error {
	return p.apply(fd, 0, ev)
}

func (p *kqueuePoller) modify(fd int, old, ev Event) error {
	return p.apply(fd, old, ev)
}

func (p *kqueuePoller) remove(fd int, old Event) error {
	return p.apply(fd, old, 0)
}

func (p *kqueuePoller) wait(events []readyEvent) (int, error) {
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.Kevent_t, len(events))
	}
	raw := p.raw[:len(events)]

	n, err := unix.Kevent(p.kq, nil, raw, nil)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, coreerrors.Wrap(err, coreerrors.CodeInternal, "kevent")
	}

	// 同一个 fd 的读写事件分两条返回，这里不合并，Loop 会分别处理
	count := 0
	for i := 0; i < n; i++ {
		k := raw[i]
		if k.Filter == unix.EVFILT_USER {
			continue
		}
		var ev Event
		switch k.Filter {
		case unix.EVFILT_READ:
			ev = EventRead
		case unix.EVFILT_WRITE:
			ev = EventWrite
		}
		if k.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0 {
			ev |= EventHup
		}
		events[count] = readyEvent{fd: int(k.Ident), ev: ev}
		count++
	}
	return count, nil
}

func (p *kqueuePoller) wake() error {
	trigger := []unix.Kevent_t{{
		Ident:  wakeIdent,
		Filter: unix.EVFILT_USER,
		Fflags: unix.NOTE_TRIGGER,
	}}
	_, err := unix.Kevent(p.kq, trigger, nil, nil)
	return err
}

func (p *kqueuePoller) close() error {
	return unix.Close(p.kq)
}
