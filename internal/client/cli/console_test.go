package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubsub-core/internal/packet"
)

// fakeBroker 记录控制台发出的操作
type fakeBroker struct {
	subscribed []string
	cancelled  []string
	published  [][2]string
	topics     []string
	failWith   error
}

func (f *fakeBroker) Subscribe(topic string) error {
	f.subscribed = append(f.subscribed, topic)
	return f.failWith
}

func (f *fakeBroker) CancelTopic(topic string) error {
	f.cancelled = append(f.cancelled, topic)
	return f.failWith
}

func (f *fakeBroker) PushTo(topic, value string) error {
	f.published = append(f.published, [2]string{topic, value})
	return f.failWith
}

func (f *fakeBroker) ListTopics(context.Context) ([]string, error) {
	return f.topics, f.failWith
}

func (f *fakeBroker) Pull(ctx context.Context) (string, string, error) {
	<-ctx.Done()
	return "", "", ctx.Err()
}

func (f *fakeBroker) Format() packet.Format { return packet.FormatJSON }
func (f *fakeBroker) Err() error            { return nil }

func newTestConsole(b *fakeBroker) (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewConsole(context.Background(), b, "127.0.0.1:5000", NewWriterOutput(&buf)), &buf
}

func TestConsole_Commands(t *testing.T) {
	b := &fakeBroker{topics: []string{"a", "a/b"}}
	c, out := newTestConsole(b)

	assert.True(t, c.Execute("sub a/b"))
	assert.True(t, c.Execute("subscribe x"))
	assert.True(t, c.Execute("pub a hello   world"))
	assert.True(t, c.Execute("unsub x"))
	assert.True(t, c.Execute("topics"))

	assert.Equal(t, []string{"a/b", "x"}, b.subscribed)
	assert.Equal(t, []string{"x"}, b.cancelled)
	assert.Equal(t, [][2]string{{"a", "hello world"}}, b.published)
	assert.Equal(t, []string{"a/b"}, c.Subscriptions())
	assert.Equal(t, []string{"a", "a/b"}, c.completionTopics())
	assert.Contains(t, out.String(), "• a/b")
}

func TestConsole_UsageErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"sub", "Usage: sub <topic>"},
		{"unsub a b", "Usage: unsub <topic>"},
		{"pub a", "Usage: pub <topic> <value...>"},
		{"frobnicate", "Unknown command: frobnicate"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			b := &fakeBroker{}
			c, out := newTestConsole(b)
			assert.True(t, c.Execute(tt.line))
			assert.Contains(t, out.String(), tt.want)
			assert.Empty(t, b.subscribed)
			assert.Empty(t, b.published)
		})
	}
}

func TestConsole_BrokerErrorsAreReported(t *testing.T) {
	b := &fakeBroker{failWith: errors.New("broken pipe")}
	c, out := newTestConsole(b)

	c.Execute("sub a")
	c.Execute("topics")
	assert.Contains(t, out.String(), "Subscribe failed: broken pipe")
	assert.Contains(t, out.String(), "List topics failed: broken pipe")
	assert.Empty(t, c.Subscriptions())
}

func TestConsole_ExitAndStatus(t *testing.T) {
	c, out := newTestConsole(&fakeBroker{})
	require.True(t, c.Execute("status"))
	assert.Contains(t, out.String(), "127.0.0.1:5000")
	assert.Contains(t, out.String(), "connected")

	assert.False(t, c.Execute("exit"))
	assert.False(t, c.Execute("q"))
	assert.True(t, c.Execute("   "))
}
