package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubsub-core/internal/broker"
	"pubsub-core/internal/topic"
)

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// HealthManager 测试
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func TestNewHealthManager(t *testing.T) {
	manager := NewHealthManager(context.Background(), "node-1", "1.0.0")
	defer manager.Close()

	assert.Equal(t, HealthStatusHealthy, manager.GetStatus())
	assert.True(t, manager.IsHealthy())
	assert.False(t, manager.IsDraining())
	assert.True(t, manager.IsAcceptingConnections())
}

func TestHealthManager_SetStatus(t *testing.T) {
	manager := NewHealthManager(context.Background(), "node-1", "1.0.0")

	manager.MarkDraining()
	assert.Equal(t, HealthStatusDraining, manager.GetStatus())
	assert.True(t, manager.IsDraining())
	assert.False(t, manager.IsAcceptingConnections())

	manager.MarkUnhealthy("loop stopped")
	assert.Equal(t, HealthStatusUnhealthy, manager.GetStatus())
	info := manager.GetHealthInfo(context.Background())
	assert.Equal(t, "loop stopped", info.Details["unhealthy_reason"])
	assert.False(t, info.AcceptingNewConns)
}

type fakeStats struct {
	stats broker.Stats
	err   error
}

func (f fakeStats) Stats(ctx context.Context) (broker.Stats, error) {
	return f.stats, f.err
}

func TestHealthManager_GetHealthInfo(t *testing.T) {
	manager := NewHealthManager(context.Background(), "node-123", "2.0.0")
	manager.SetDetail("listen", "localhost:5000")
	manager.SetStatsProvider(NewEngineAdapter(fakeStats{stats: broker.Stats{
		Connections: 3,
		Store:       topic.Stats{Topics: 5},
	}}))

	info := manager.GetHealthInfo(context.Background())
	assert.Equal(t, HealthStatusHealthy, info.Status)
	assert.Equal(t, 3, info.ActiveConnections)
	assert.Equal(t, 5, info.Topics)
	assert.Equal(t, "node-123", info.NodeID)
	assert.Equal(t, "2.0.0", info.Version)
	assert.Equal(t, "localhost:5000", info.Details["listen"])
	assert.True(t, info.AcceptingNewConns)
	assert.WithinDuration(t, time.Now(), info.LastStatusChange, time.Second)

	// 返回的 details 是副本
	info.Details["listen"] = "changed"
	assert.Equal(t, "localhost:5000", manager.GetHealthInfo(context.Background()).Details["listen"])
}

func TestHealthManager_StatsError(t *testing.T) {
	manager := NewHealthManager(context.Background(), "n", "v")
	manager.SetStatsProvider(NewEngineAdapter(fakeStats{err: errors.New("loop busy")}))

	info := manager.GetHealthInfo(context.Background())
	assert.Equal(t, "loop busy", info.Details["stats_error"])
	assert.Zero(t, info.ActiveConnections)
}

func TestHealthManager_UnhealthyComponent(t *testing.T) {
	manager := NewHealthManager(context.Background(), "n", "v")
	manager.RegisterChecker("loop", NewLoopHealthChecker(&fakeLoop{running: false}))

	info := manager.GetHealthInfo(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, info.Status)
	require.Contains(t, info.Components, "loop")
	assert.Equal(t, "loop not running", info.Components["loop"].Message)
	assert.Equal(t, HealthStatusHealthy, manager.GetStatus(), "component failures do not change the stored status")
}
