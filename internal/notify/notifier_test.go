package notify

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
)

func TestNewBus(t *testing.T) {
	ctx := context.Background()

	bus, err := NewBus(ctx, &BusConfig{Type: BusTypeNone})
	require.NoError(t, err)
	assert.Nil(t, bus)

	bus, err = NewBus(ctx, &BusConfig{Type: BusTypeMemory, NodeID: "n"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBus{}, bus)
	require.NoError(t, bus.Close())

	_, err = NewBus(ctx, &BusConfig{Type: BusTypeRedis})
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeConfigError))

	_, err = NewBus(ctx, &BusConfig{Type: "kafka"})
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeConfigError))

	_, err = NewBus(ctx, nil)
	assert.Error(t, err)
}

func TestNewBus_Redis(t *testing.T) {
	_, config := setupTestRedis(t)
	bus, err := NewBus(context.Background(), &BusConfig{Type: BusTypeRedis, NodeID: "n", Redis: config})
	require.NoError(t, err)
	defer bus.Close()
	assert.NoError(t, bus.Ping(context.Background()))
}

func TestNotifier_DeliversEvents(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus("node-1")
	ch, err := bus.Subscribe(ctx, TopicConnClosed)
	require.NoError(t, err)

	n := NewNotifier(ctx, bus, 8, nil, corelog.NewTestLogger(t))
	defer n.Close()
	require.True(t, n.Enabled())

	assert.True(t, n.ConnClosed(ConnClosedEvent{ConnID: 3, Reason: "peer closed", Topics: []string{"a", "b"}}))

	select {
	case msg := <-ch:
		var got ConnClosedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, uint64(3), got.ConnID)
		assert.Equal(t, []string{"a", "b"}, got.Topics)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

// blockingBus Publish 阻塞直到 release 关闭
type blockingBus struct {
	MemoryBus
	release chan struct{}
}

func (b *blockingBus) Publish(ctx context.Context, topic string, payload []byte) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

func (b *blockingBus) Close() error { return nil }

func TestNotifier_DropsWhenFull(t *testing.T) {
	bus := &blockingBus{release: make(chan struct{})}
	m := metrics.NewMemoryMetrics()
	n := NewNotifier(context.Background(), bus, 1, m, corelog.NewTestLogger(t))

	// 第一个事件被 worker 取走并阻塞，第二个填满队列，之后全部丢弃
	require.True(t, n.TopicCreated(TopicCreatedEvent{Topic: "a"}))
	require.Eventually(t, func() bool { return len(n.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.True(t, n.TopicCreated(TopicCreatedEvent{Topic: "b"}))

	start := time.Now()
	for i := 0; i < 10; i++ {
		assert.False(t, n.TopicCreated(TopicCreatedEvent{Topic: "c"}))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Emit must not block")

	dropped, err := m.GetCounter(metrics.NotifyDropped, map[string]string{"topic": TopicTopicCreated})
	require.NoError(t, err)
	assert.Equal(t, float64(10), dropped)

	close(bus.release)
	require.NoError(t, n.Close())
}

func TestNotifier_Disabled(t *testing.T) {
	n := NewNotifier(context.Background(), nil, 0, nil, corelog.NewTestLogger(t))
	assert.False(t, n.Enabled())
	assert.False(t, n.ConnOpened(ConnOpenedEvent{ConnID: 1}))
	assert.NoError(t, n.Ping(context.Background()))
	assert.NoError(t, n.Close())

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
	assert.False(t, nilNotifier.Emit(TopicConnOpened, nil))
}

func TestNotifier_AfterClose(t *testing.T) {
	n := NewNotifier(context.Background(), NewMemoryBus("n"), 4, nil, corelog.NewTestLogger(t))
	require.NoError(t, n.Close())
	assert.False(t, n.ConnOpened(ConnOpenedEvent{ConnID: 1}))
	assert.ErrorIs(t, n.Ping(context.Background()), coreerrors.ErrServiceClosed)
}
