//go:build !linux && !darwin && !freebsd

package netpoll

import (
	"net"

	coreerrors "pubsub-core/internal/core/errors"
)

func sysRead(int, []byte) (int, error)  { return 0, coreerrors.ErrNotSupported }
func sysWrite(int, []byte) (int, error) { return 0, coreerrors.ErrNotSupported }
func sysClose(int) error                { return coreerrors.ErrNotSupported }

func sysListen(*net.TCPAddr, int) (int, *net.TCPAddr, error) {
	return -1, nil, coreerrors.ErrNotSupported
}

func sysAccept(int) (int, *net.TCPAddr, error) {
	return -1, nil, coreerrors.ErrNotSupported
}
