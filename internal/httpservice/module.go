// Package httpservice 提供统一的 HTTP 服务框架
// 支持模块化设计，各模块自注册路由，独立配置启用/禁用
package httpservice

import (
	"github.com/gorilla/mux"

	"pubsub-core/internal/broker"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/health"
)

// HTTPModule HTTP 服务模块接口
// 所有 HTTP 子服务（Management API、WebSocket）都需要实现此接口
type HTTPModule interface {
	// Name 模块名称（用于日志和配置）
	Name() string

	// RegisterRoutes 注册路由到 router
	RegisterRoutes(router *mux.Router)

	// SetDependencies 注入依赖
	SetDependencies(deps *ModuleDependencies)

	// Start 启动模块（可选的后台任务）
	Start() error

	// Stop 停止模块
	Stop() error
}

// ModuleDependencies 模块依赖
type ModuleDependencies struct {
	Engine        *broker.Engine
	Metrics       metrics.Metrics
	HealthManager *health.HealthManager
}
