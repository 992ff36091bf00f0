package health

import (
	"context"

	"pubsub-core/internal/broker"
)

// EngineStats 引擎统计接口
type EngineStats interface {
	Stats(ctx context.Context) (broker.Stats, error)
}

// EngineAdapter 将引擎统计适配为 StatsProvider
type EngineAdapter struct {
	engine EngineStats
}

// NewEngineAdapter 创建引擎适配器
func NewEngineAdapter(engine EngineStats) *EngineAdapter {
	return &EngineAdapter{engine: engine}
}

// HealthStats 实现 StatsProvider
func (a *EngineAdapter) HealthStats(ctx context.Context) (Stats, error) {
	st, err := a.engine.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{ActiveConnections: st.Connections, Topics: st.Store.Topics}, nil
}
