package broker

import (
	"context"
	"sort"

	"pubsub-core/internal/topic"
)

// 以下方法可在任意 goroutine 调用，通过事件循环访问引擎状态。
// Call 超时返回后任务仍可能执行，所以出错时不读取任务写入的变量。

// Stats 引擎统计
type Stats struct {
	Store       topic.Stats    `json:"store"`
	Connections int            `json:"connections"`
	ByTransport map[string]int `json:"by_transport"`
	FanoutMode  string         `json:"fanout_mode"`
}

// ListTopics 返回所有主题名，按名称排序
func (e *Engine) ListTopics(ctx context.Context) ([]string, error) {
	var topics []string
	if err := e.loop.Call(ctx, func() { topics = e.store.ListTopics() }); err != nil {
		return nil, err
	}
	return topics, nil
}

// TopicInfo 返回主题详情，主题不存在时 ok 为 false
func (e *Engine) TopicInfo(ctx context.Context, name string) (topic.Info, bool, error) {
	var (
		info topic.Info
		ok   bool
	)
	if err := e.loop.Call(ctx, func() { info, ok = e.store.Info(name) }); err != nil {
		return topic.Info{}, false, err
	}
	return info, ok, nil
}

// Publish 从管理接口发布，返回投递次数
func (e *Engine) Publish(ctx context.Context, name, value string) (int, error) {
	var n int
	if err := e.loop.Call(ctx, func() { n = e.fanout(name, value) }); err != nil {
		return 0, err
	}
	return n, nil
}

// Stats 返回引擎统计
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := e.loop.Call(ctx, func() {
		st = Stats{
			Store:       e.store.Stats(),
			Connections: len(e.sessions),
			ByTransport: make(map[string]int),
			FanoutMode:  string(e.store.Mode()),
		}
		for _, s := range e.sessions {
			st.ByTransport[s.Transport]++
		}
	}); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// Sessions 返回所有会话快照，按 ID 排序
func (e *Engine) Sessions(ctx context.Context) ([]SessionInfo, error) {
	var out []SessionInfo
	if err := e.loop.Call(ctx, func() {
		out = make([]SessionInfo, 0, len(e.sessions))
		for _, s := range e.sessions {
			out = append(out, s.info())
		}
	}); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
