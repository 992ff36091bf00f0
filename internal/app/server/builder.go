package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pubsub-core/internal/config/schema"
	"pubsub-core/internal/core/dispose"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
)

// ServerBuilder 服务器构建器
// 按顺序初始化各组件，组件的产出通过 Dependencies 传给后续组件
type ServerBuilder struct {
	config     *schema.Root
	components []Component
	deps       *Dependencies
}

// NewServerBuilder 创建服务器构建器
func NewServerBuilder(config *schema.Root) *ServerBuilder {
	return &ServerBuilder{
		config:     config,
		components: make([]Component, 0),
		deps: &Dependencies{
			Config:   config,
			Resource: dispose.NewResourceManager(),
		},
	}
}

// With 添加组件
func (b *ServerBuilder) With(c Component) *ServerBuilder {
	b.components = append(b.components, c)
	return b
}

// WithLogger 使用外部 Logger，跳过按配置初始化日志
func (b *ServerBuilder) WithLogger(logger corelog.Logger) *ServerBuilder {
	b.deps.Logger = logger
	return b
}

// WithMetrics 使用外部指标实现
func (b *ServerBuilder) WithMetrics(m metrics.Metrics) *ServerBuilder {
	b.deps.Metrics = m
	return b
}

// WithDefaults 添加默认组件（顺序即依赖顺序）
func (b *ServerBuilder) WithDefaults() *ServerBuilder {
	return b.
		With(&MetricsComponent{}).
		With(&NotifyComponent{}).
		With(&EngineComponent{}).
		With(&HealthComponent{}).
		With(&HTTPComponent{})
}

// Build 构建服务器
func (b *ServerBuilder) Build(ctx context.Context) (*Server, error) {
	if b.deps.Logger == nil {
		lc := b.config.Log
		closer, err := corelog.Init(corelog.Config{
			Level:   lc.Level,
			Format:  lc.Format,
			File:    lc.File,
			Console: lc.Console,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		b.deps.Logger = corelog.Default()
		b.deps.LogCloser = closer
	}

	b.deps.NodeID = b.config.Server.NodeID
	if b.deps.NodeID == "" {
		b.deps.NodeID = uuid.NewString()
	}

	for _, c := range b.components {
		b.deps.Logger.Debugf("Initializing component: %s", c.Name())
		if err := c.Initialize(ctx, b.deps); err != nil {
			b.release()
			return nil, NewComponentError(c.Name(), err)
		}
	}

	if b.deps.Engine == nil {
		b.release()
		return nil, fmt.Errorf("engine component not initialized")
	}
	return newServer(b.deps), nil
}

// release 初始化失败时释放已创建的资源
func (b *ServerBuilder) release() {
	if b.deps.Loop != nil {
		b.deps.Loop.Close()
	}
	b.deps.Resource.DisposeAll()
	if b.deps.LogCloser != nil {
		_ = b.deps.LogCloser.Close()
	}
}
