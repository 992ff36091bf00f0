// Package health 代理健康状态
//
// HealthManager 维护 healthy / draining / unhealthy 状态，汇总各组件检查结果，
// 供管理接口的 /healthz 与 /ready 使用。
package health

import (
	"context"
	"sync"
	"time"

	"pubsub-core/internal/core/dispose"
)

// HealthStatus 健康状态
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"   // 健康，可以接受新连接
	HealthStatusDraining  HealthStatus = "draining"  // 排空中，正在关闭
	HealthStatusUnhealthy HealthStatus = "unhealthy" // 不健康，不可用
)

// HealthInfo 健康信息
type HealthInfo struct {
	Status            HealthStatus                `json:"status"`
	ActiveConnections int                         `json:"active_connections"`
	Topics            int                         `json:"topics"`
	Uptime            int64                       `json:"uptime_seconds"`
	NodeID            string                      `json:"node_id,omitempty"`
	Version           string                      `json:"version,omitempty"`
	Details           map[string]string           `json:"details,omitempty"`
	Components        map[string]*ComponentHealth `json:"components,omitempty"`
	LastStatusChange  time.Time                   `json:"last_status_change"`
	AcceptingNewConns bool                        `json:"accepting_new_connections"`
}

// Stats 引擎统计
type Stats struct {
	ActiveConnections int
	Topics            int
}

// StatsProvider 提供统计信息的接口
type StatsProvider interface {
	HealthStats(ctx context.Context) (Stats, error)
}

// HealthManager 健康状态管理器
//
// 职责：
// 1. 管理服务器健康状态（healthy/draining/unhealthy）
// 2. 汇总事件循环、通知总线等组件的检查结果
// 3. 在优雅关闭时将状态切换为 draining
type HealthManager struct {
	*dispose.Dispose

	mu               sync.RWMutex
	status           HealthStatus
	startTime        time.Time
	lastStatusChange time.Time
	nodeID           string
	version          string
	details          map[string]string

	statsProvider StatsProvider
	checker       *CompositeHealthChecker
}

// NewHealthManager 创建健康状态管理器
func NewHealthManager(parentCtx context.Context, nodeID, version string) *HealthManager {
	now := time.Now()
	return &HealthManager{
		Dispose:          dispose.New(parentCtx, nil),
		status:           HealthStatusHealthy,
		startTime:        now,
		lastStatusChange: now,
		nodeID:           nodeID,
		version:          version,
		details:          make(map[string]string),
		checker:          NewCompositeHealthChecker(2 * time.Second),
	}
}

// SetStatsProvider 设置统计信息提供者
func (m *HealthManager) SetStatsProvider(provider StatsProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsProvider = provider
}

// RegisterChecker 注册组件检查器
func (m *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	m.checker.RegisterChecker(name, checker)
}

// GetStatus 获取当前健康状态
func (m *HealthManager) GetStatus() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// SetStatus 设置健康状态
func (m *HealthManager) SetStatus(status HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != status {
		m.status = status
		m.lastStatusChange = time.Now()
	}
}

func (m *HealthManager) IsHealthy() bool {
	return m.GetStatus() == HealthStatusHealthy
}

func (m *HealthManager) IsDraining() bool {
	return m.GetStatus() == HealthStatusDraining
}

// IsAcceptingConnections 只有 healthy 状态接受新连接
func (m *HealthManager) IsAcceptingConnections() bool {
	return m.GetStatus() == HealthStatusHealthy
}

// MarkDraining 标记为排空中（优雅关闭）
func (m *HealthManager) MarkDraining() {
	m.SetStatus(HealthStatusDraining)
}

// MarkUnhealthy 标记为不健康
func (m *HealthManager) MarkUnhealthy(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = HealthStatusUnhealthy
	m.lastStatusChange = time.Now()
	m.details["unhealthy_reason"] = reason
}

// SetDetail 设置详细信息
func (m *HealthManager) SetDetail(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details[key] = value
}

// GetHealthInfo 获取完整健康信息
// 组件不健康时整体状态降为 unhealthy，但不改变手动设置的状态
func (m *HealthManager) GetHealthInfo(ctx context.Context) *HealthInfo {
	components := m.checker.CheckAll(ctx)

	m.mu.RLock()
	provider := m.statsProvider
	info := &HealthInfo{
		Status:           m.status,
		Uptime:           int64(time.Since(m.startTime).Seconds()),
		NodeID:           m.nodeID,
		Version:          m.version,
		Details:          make(map[string]string, len(m.details)),
		Components:       components,
		LastStatusChange: m.lastStatusChange,
	}
	for k, v := range m.details {
		info.Details[k] = v
	}
	m.mu.RUnlock()

	if provider != nil {
		if st, err := provider.HealthStats(ctx); err == nil {
			info.ActiveConnections = st.ActiveConnections
			info.Topics = st.Topics
		} else {
			info.Details["stats_error"] = err.Error()
		}
	}
	if info.Status == HealthStatusHealthy && OverallStatus(components) == ComponentStatusUnhealthy {
		info.Status = HealthStatusUnhealthy
	}
	info.AcceptingNewConns = info.Status == HealthStatusHealthy
	return info
}
