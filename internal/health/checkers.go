package health

import (
	"context"
	"time"

	coreerrors "pubsub-core/internal/core/errors"
)

// LoopChecker 事件循环检查接口
type LoopChecker interface {
	Running() bool
	// Call 在事件循环中执行任务并等待完成
	Call(ctx context.Context, task func()) error
}

// LoopHealthChecker 事件循环健康检查器
// 循环在运行且能在超时内执行一个空任务才算健康
type LoopHealthChecker struct {
	loop LoopChecker
}

// NewLoopHealthChecker 创建事件循环健康检查器
func NewLoopHealthChecker(loop LoopChecker) *LoopHealthChecker {
	return &LoopHealthChecker{loop: loop}
}

// Check 检查事件循环
func (c *LoopHealthChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	h := &ComponentHealth{Name: "loop", Status: ComponentStatusHealthy, LastCheck: time.Now()}
	switch {
	case c.loop == nil:
		h.Status, h.Message = ComponentStatusUnhealthy, "loop not configured"
	case !c.loop.Running():
		h.Status, h.Message = ComponentStatusUnhealthy, "loop not running"
	default:
		start := time.Now()
		if err := c.loop.Call(ctx, func() {}); err != nil {
			h.Status, h.Message = ComponentStatusUnhealthy, err.Error()
		} else if lag := time.Since(start); lag > 100*time.Millisecond {
			h.Status, h.Message = ComponentStatusDegraded, "task latency "+lag.String()
		}
	}
	return h, nil
}

// NotifierChecker 通知总线检查接口
type NotifierChecker interface {
	Enabled() bool
	Ping(ctx context.Context) error
}

// NotifierHealthChecker 通知总线健康检查器
// 总线不可用只影响事件通知，因此报告为降级
type NotifierHealthChecker struct {
	notifier NotifierChecker
}

// NewNotifierHealthChecker 创建通知总线健康检查器
func NewNotifierHealthChecker(notifier NotifierChecker) *NotifierHealthChecker {
	return &NotifierHealthChecker{notifier: notifier}
}

// Check 检查通知总线
func (c *NotifierHealthChecker) Check(ctx context.Context) (*ComponentHealth, error) {
	h := &ComponentHealth{Name: "notify", Status: ComponentStatusHealthy, LastCheck: time.Now()}
	switch {
	case c.notifier == nil || !c.notifier.Enabled():
		h.Message = "disabled"
	default:
		if err := c.notifier.Ping(ctx); err != nil {
			h.Status = ComponentStatusDegraded
			h.Message = err.Error()
			if coreerrors.IsCode(err, coreerrors.CodeServiceClosed) {
				h.Status = ComponentStatusUnhealthy
			}
		}
	}
	return h, nil
}
