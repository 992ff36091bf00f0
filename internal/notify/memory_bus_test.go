package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "pubsub-core/internal/core/errors"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus("node-1")
	defer bus.Close()

	ch, err := bus.Subscribe(ctx, TopicConnOpened)
	require.NoError(t, err)

	payload, err := json.Marshal(ConnOpenedEvent{ConnID: 7, Remote: "127.0.0.1:4000", Transport: "tcp"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, TopicConnOpened, payload))

	select {
	case msg := <-ch:
		assert.Equal(t, TopicConnOpened, msg.Topic)
		assert.Equal(t, "node-1", msg.NodeID)
		assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)

		var got ConnOpenedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, uint64(7), got.ConnID)
		assert.Equal(t, "tcp", got.Transport)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestMemoryBus_MultipleSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus("node-1")
	defer bus.Close()

	ch1, err := bus.Subscribe(ctx, TopicTopicCreated)
	require.NoError(t, err)
	ch2, err := bus.Subscribe(ctx, TopicTopicCreated)
	require.NoError(t, err)
	assert.Equal(t, 2, bus.SubscriberCount(TopicTopicCreated))

	require.NoError(t, bus.Publish(ctx, TopicTopicCreated, []byte(`{"topic":"a"}`)))
	for _, ch := range []<-chan *Message{ch1, ch2} {
		select {
		case msg := <-ch:
			assert.Equal(t, []byte(`{"topic":"a"}`), msg.Payload)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	}
}

func TestMemoryBus_PublishWithoutSubscribers(t *testing.T) {
	bus := NewMemoryBus("node-1")
	defer bus.Close()
	assert.NoError(t, bus.Publish(context.Background(), TopicConnClosed, []byte("{}")))
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus("node-1")
	defer bus.Close()

	ch, err := bus.Subscribe(ctx, TopicConnClosed)
	require.NoError(t, err)
	require.NoError(t, bus.Unsubscribe(ctx, TopicConnClosed))

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	assert.Zero(t, bus.SubscriberCount(TopicConnClosed))

	err = bus.Unsubscribe(ctx, TopicConnClosed)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeNotFound))
}

func TestMemoryBus_Close(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus("node-1")

	ch, err := bus.Subscribe(ctx, TopicConnOpened)
	require.NoError(t, err)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, bus.Publish(ctx, TopicConnOpened, nil), coreerrors.ErrServiceClosed)
	_, err = bus.Subscribe(ctx, TopicConnOpened)
	assert.ErrorIs(t, err, coreerrors.ErrServiceClosed)
	assert.ErrorIs(t, bus.Ping(ctx), coreerrors.ErrServiceClosed)
}

func TestMemoryBus_ConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus("node-1")
	defer bus.Close()

	ch, err := bus.Subscribe(ctx, TopicConnOpened)
	require.NoError(t, err)

	const workers, perWorker = 5, 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				assert.NoError(t, bus.Publish(ctx, TopicConnOpened, []byte("{}")))
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ch, workers*perWorker)
}
