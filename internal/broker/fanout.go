package broker

import (
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/packet/builder"
	"pubsub-core/internal/topic"
)

// formatCount 格式标签数量
const formatCount = int(packet.FormatMsgpack) + 1

type failedDelivery struct {
	s   *Session
	err error
}

// publish 处理客户端发布，超出速率的发布被丢弃
func (e *Engine) publish(s *Session, name, value string) {
	if s.limiter != nil && !s.limiter.Allow() {
		_ = e.metrics.IncrementCounter(metrics.RateLimited, nil)
		s.logger.Debugf("Engine: publish to %q dropped by rate limit", name)
		return
	}
	n := e.fanout(name, value)
	s.logger.Debugf("Engine: published to %q, %d deliveries", name, n)
}

// fanout 写入最新值并投递给所有命中的订阅者
//
// 每种格式只编码一次。写失败或超过未发出上限的订阅者在扇出结束后统一断开，
// 其余订阅者仍会收到本次发布。返回成功写出的次数。
func (e *Engine) fanout(name, value string) int {
	var (
		frames  [formatCount][]byte
		encErrs [formatCount]error
		failed  []failedDelivery
		written int
	)
	msg := packet.Publish{Topic: name, Value: value}

	e.store.Publish(name, value, func(d topic.Delivery) {
		sub, ok := e.sessions[d.Conn]
		if !ok || sub.state == StateClosed {
			return
		}
		f := int(d.Format)
		if f >= formatCount {
			return
		}
		if frames[f] == nil && encErrs[f] == nil {
			frames[f], encErrs[f] = builder.Encode(msg, d.Format)
			if encErrs[f] != nil {
				e.logger.Warnf("Engine: cannot encode %q for %s subscribers: %v", name, d.Format, encErrs[f])
			}
		}
		if encErrs[f] != nil {
			return
		}
		if err := e.write(sub, frames[f], d.Format); err != nil {
			failed = append(failed, failedDelivery{s: sub, err: err})
			return
		}
		written++
	})

	_ = e.metrics.IncrementCounter(metrics.Publishes, nil)
	_ = e.metrics.AddCounter(metrics.Deliveries, float64(written), nil)

	for _, f := range failed {
		e.closeSession(f.s, f.err)
	}
	return written
}
