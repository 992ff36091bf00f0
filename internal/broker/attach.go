package broker

import (
	"context"

	coreerrors "pubsub-core/internal/core/errors"
	"pubsub-core/internal/topic"
)

// Attach 接入非 TCP 传输的端点，可在任意 goroutine 调用
//
// 成功后端点的数据通过 Feed 投递，对端断开时调用 Detach。
// 引擎关闭会话时调用 ep.Close，之后 Feed/Detach 都被忽略。
func (e *Engine) Attach(ctx context.Context, ep Endpoint, transport string) (topic.ConnID, error) {
	var (
		id  topic.ConnID
		err error
	)
	if callErr := e.loop.Call(ctx, func() {
		if ctx.Err() != nil {
			return
		}
		if err = e.admit(); err != nil {
			return
		}
		id = e.open(ep, transport).ID
	}); callErr != nil {
		// 调用方已放弃，任务可能在等待超时后才打开会话，按提交顺序在其后回收
		_ = e.loop.Submit(func() {
			if s, ok := e.sessions[id]; id != 0 && ok {
				e.closeSession(s, callErr)
			}
		})
		return 0, callErr
	}
	return id, err
}

// Feed 投递端点收到的字节，data 的所有权转交给引擎
func (e *Engine) Feed(id topic.ConnID, data []byte) error {
	return e.loop.Submit(func() {
		s, ok := e.sessions[id]
		if !ok || s.tcp != nil {
			return
		}
		s.in = append(s.in, data...)
		consumed, err := e.process(s, s.in)
		if s.state == StateClosed {
			return
		}
		if err != nil {
			e.closeSession(s, err)
			return
		}
		rest := copy(s.in, s.in[consumed:])
		s.in = s.in[:rest]
	})
}

// Detach 端点已断开，释放会话
func (e *Engine) Detach(id topic.ConnID, reason error) error {
	if reason == nil {
		reason = coreerrors.ErrPeerClosed
	}
	return e.loop.Submit(func() {
		if s, ok := e.sessions[id]; ok && s.tcp == nil {
			e.closeSession(s, reason)
		}
	})
}
