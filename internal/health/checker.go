package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ComponentStatus 组件状态
type ComponentStatus string

const (
	ComponentStatusHealthy   ComponentStatus = "healthy"
	ComponentStatusDegraded  ComponentStatus = "degraded"  // 降级，部分功能不可用
	ComponentStatusUnhealthy ComponentStatus = "unhealthy" // 不健康，完全不可用
)

// ComponentHealth 组件健康信息
type ComponentHealth struct {
	Name      string          `json:"name"`
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LastCheck time.Time       `json:"last_check"`
}

// HealthChecker 健康检查器接口
type HealthChecker interface {
	// Check 执行健康检查，返回组件健康信息
	Check(ctx context.Context) (*ComponentHealth, error)
}

// CompositeHealthChecker 组合健康检查器
// 用于检查多个子系统的健康状态
type CompositeHealthChecker struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	timeout  time.Duration
}

// NewCompositeHealthChecker 创建组合健康检查器
func NewCompositeHealthChecker(timeout time.Duration) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		checkers: make(map[string]HealthChecker),
		timeout:  timeout,
	}
}

// RegisterChecker 注册健康检查器，同名覆盖
func (c *CompositeHealthChecker) RegisterChecker(name string, checker HealthChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkers[name] = checker
}

// Names 已注册的检查器名称（升序）
func (c *CompositeHealthChecker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checkers))
	for name := range c.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckAll 检查所有注册的组件，每个检查器单独超时
func (c *CompositeHealthChecker) CheckAll(ctx context.Context) map[string]*ComponentHealth {
	c.mu.RLock()
	checkers := make(map[string]HealthChecker, len(c.checkers))
	for name, checker := range c.checkers {
		checkers[name] = checker
	}
	c.mu.RUnlock()

	results := make(map[string]*ComponentHealth, len(checkers))
	for name, checker := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		h, err := checker.Check(checkCtx)
		cancel()

		if err != nil {
			h = &ComponentHealth{
				Name:      name,
				Status:    ComponentStatusUnhealthy,
				Message:   err.Error(),
				LastCheck: time.Now(),
			}
		}
		if h != nil {
			results[name] = h
		}
	}
	return results
}

// OverallStatus 汇总组件状态：任一不健康为 unhealthy，任一降级为 degraded
func OverallStatus(results map[string]*ComponentHealth) ComponentStatus {
	hasDegraded := false
	for _, h := range results {
		switch h.Status {
		case ComponentStatusUnhealthy:
			return ComponentStatusUnhealthy
		case ComponentStatusDegraded:
			hasDegraded = true
		}
	}
	if hasDegraded {
		return ComponentStatusDegraded
	}
	return ComponentStatusHealthy
}

// GetOverallStatus 检查所有组件并返回整体状态
func (c *CompositeHealthChecker) GetOverallStatus(ctx context.Context) ComponentStatus {
	return OverallStatus(c.CheckAll(ctx))
}
