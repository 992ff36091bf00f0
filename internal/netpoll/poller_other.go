//go:build !linux && !darwin && !freebsd

package netpoll

import coreerrors "pubsub-core/internal/core/errors"

func newPoller() (poller, error) {
	return nil, coreerrors.Wrap(coreerrors.ErrNotSupported, coreerrors.CodeNotSupported, "readiness loop requires epoll or kqueue")
}
