//go:build linux || darwin || freebsd

package netpoll

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"

	coreerrors "pubsub-core/internal/core/errors"
)

// sysRead 非阻塞读；没有数据时返回 (0, nil)
func sysRead(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		switch {
		case err == nil && n == 0:
			return 0, coreerrors.Wrap(io.EOF, coreerrors.CodePeerClosed, "connection closed by peer")
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		default:
			return 0, connError(err, "read")
		}
	}
}

// sysWrite 非阻塞写；内核缓冲区满时返回已写入的字节数
func sysWrite(fd int, b []byte) (int, error) {
	for {
		n, err := unix.Write(fd, b)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, nil
		default:
			return 0, connError(err, "write")
		}
	}
}

func sysClose(fd int) error {
	return unix.Close(fd)
}

func connError(err error, op string) error {
	switch {
	case errors.Is(err, unix.ECONNRESET), errors.Is(err, unix.EPIPE), errors.Is(err, unix.ETIMEDOUT):
		return coreerrors.Wrap(err, coreerrors.CodePeerReset, op)
	default:
		return coreerrors.Wrap(err, coreerrors.CodeNetworkError, op)
	}
}

// sysListen 创建非阻塞监听 socket
func sysListen(addr *net.TCPAddr, backlog int) (int, *net.TCPAddr, error) {
	family, sa := toSockaddr(addr)
	fd, err := sysSocket(family)
	if err != nil {
		return -1, nil, coreerrors.Wrap(err, coreerrors.CodeNetworkError, "socket")
	}

	fail := func(op string, err error) (int, *net.TCPAddr, error) {
		unix.Close(fd)
		return -1, nil, coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "%s %s", op, addr)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setsockopt SO_REUSEADDR", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listen", err)
	}
	bound, err := unix.Getsockname(fd)
	if err != nil {
		return fail("getsockname", err)
	}
	return fd, fromSockaddr(bound), nil
}

// sysAccept 接受一个连接，没有待处理连接时返回 errAgain
func sysAccept(fd int) (int, *net.TCPAddr, error) {
	for {
		nfd, sa, err := accept(fd)
		switch {
		case err == nil:
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			return nfd, fromSockaddr(sa), nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN):
			return -1, nil, errAgain
		default:
			return -1, nil, coreerrors.Wrap(err, coreerrors.CodeNetworkError, "accept")
		}
	}
}

func toSockaddr(addr *net.TCPAddr) (int, unix.Sockaddr) {
	if ip4 := addr.IP.To4(); ip4 != nil || addr.IP == nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	if addr.Zone != "" {
		if ifi, err := net.InterfaceByName(addr.Zone); err == nil {
			sa.ZoneId = uint32(ifi.Index)
		}
	}
	return unix.AF_INET6, sa
}

func fromSockaddr(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}
	default:
		return &net.TCPAddr{}
	}
}
