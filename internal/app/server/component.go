package server

import (
	"context"
	"fmt"
	"io"
	"net"

	"pubsub-core/internal/broker"
	"pubsub-core/internal/config/schema"
	"pubsub-core/internal/core/dispose"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/health"
	"pubsub-core/internal/httpservice"
	"pubsub-core/internal/netpoll"
	"pubsub-core/internal/notify"
)

// ============================================================================
// 组件接口定义
// ============================================================================

// Component 服务器组件接口
// 每个组件负责自己的初始化、启动和停止逻辑
type Component interface {
	// Name 返回组件名称（用于日志和错误信息）
	Name() string

	// Initialize 初始化组件，注入依赖
	// 返回 error 表示初始化失败，服务器应该停止启动
	Initialize(ctx context.Context, deps *Dependencies) error
}

// Dependencies 依赖容器
// 组件初始化时从这里获取依赖，初始化完成后将自己的产出注入回来
type Dependencies struct {
	Config *schema.Root
	NodeID string

	Logger    corelog.Logger
	LogCloser io.Closer
	Metrics   metrics.Metrics

	// 通知
	Bus      notify.Bus
	Notifier *notify.Notifier

	// 引擎
	Loop     *netpoll.Loop
	Engine   *broker.Engine
	TCPAddr  *net.TCPAddr
	Resource *dispose.ResourceManager

	HealthManager *health.HealthManager
	HTTPService   *httpservice.HTTPService
}

// ============================================================================
// 组件初始化错误
// ============================================================================

// ComponentError 组件初始化错误
type ComponentError struct {
	ComponentName string
	Err           error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component %s initialization failed: %v", e.ComponentName, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// NewComponentError 创建组件错误
func NewComponentError(name string, err error) *ComponentError {
	return &ComponentError{
		ComponentName: name,
		Err:           err,
	}
}
