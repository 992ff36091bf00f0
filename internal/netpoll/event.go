package netpoll

// Event 就绪事件位
type Event uint32

const (
	EventRead Event = 1 << iota
	EventWrite
	// EventHup 对端关闭或出错，按可读处理，由读取得到具体错误
	EventHup
)

func (e Event) String() string {
	s := ""
	if e&EventRead != 0 {
		s += "r"
	}
	if e&EventWrite != 0 {
		s += "w"
	}
	if e&EventHup != 0 {
		s += "h"
	}
	if s == "" {
		return "-"
	}
	return s
}

type readyEvent struct {
	fd int
	ev Event
}

// poller 操作系统就绪通知机制（epoll / kqueue）
type poller interface {
	add(fd int, ev Event) error
	modify(fd int, old, ev Event) error
	remove(fd int, old Event) error
	// wait 阻塞直到有事件或被 wake 唤醒，返回的事件不包含唤醒源
	wait(events []readyEvent) (int, error)
	wake() error
	close() error
}
