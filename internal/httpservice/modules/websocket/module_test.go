//go:build linux || darwin || freebsd

package websocket

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pubsub-core/internal/broker"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/httpservice"
	"pubsub-core/internal/netpoll"
	"pubsub-core/internal/packet"
	"pubsub-core/internal/packet/builder"
	"pubsub-core/internal/packet/parser"
)

type wsHarness struct {
	t       *testing.T
	engine  *broker.Engine
	module  *WebSocketModule
	metrics *metrics.MemoryMetrics
	url     string
}

func newWSHarness(t *testing.T, opts broker.Options) *wsHarness {
	t.Helper()
	logger := corelog.NewTestLogger(t)
	loop, err := netpoll.NewLoop(netpoll.Options{Logger: logger})
	require.NoError(t, err)

	m := metrics.NewMemoryMetrics()
	opts.Metrics = m
	opts.Logger = logger
	engine := broker.New(loop, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()

	cfg := httpservice.DefaultHTTPServiceConfig()
	svc := httpservice.NewHTTPService(ctx, cfg, &httpservice.ModuleDependencies{Engine: engine, Metrics: m})
	module := NewWebSocketModule(ctx, &cfg.Modules.WebSocket)
	svc.RegisterModule(module)
	require.NoError(t, module.Start())
	server := httptest.NewServer(svc.Handler())

	t.Cleanup(func() {
		module.Stop()
		server.Close()
		svc.Stop()
		cancel()
		<-done
	})
	return &wsHarness{
		t:       t,
		engine:  engine,
		module:  module,
		metrics: m,
		url:     "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
	}
}

func (h *wsHarness) dial() *websocket.Conn {
	h.t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, format packet.Format, msg packet.Message) {
	t.Helper()
	frame, err := builder.Encode(msg, format)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame))
}

func recv(t *testing.T, conn *websocket.Conn) (packet.Format, packet.Message) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	messageType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, messageType)
	format, msg, err := parser.DecodeFrame(bytes.NewReader(data))
	require.NoError(t, err)
	return format, msg
}

func (h *wsHarness) waitSubscribers(name string, n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		info, ok, err := h.engine.TopicInfo(context.Background(), name)
		return err == nil && ok && info.Subscribers == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_SubscribeAndReceive(t *testing.T) {
	h := newWSHarness(t, broker.Options{})
	sub := h.dial()
	pub := h.dial()

	send(t, sub, packet.FormatMsgpack, packet.Subscribe{Topic: "a"})
	h.waitSubscribers("a", 1)

	send(t, pub, packet.FormatJSON, packet.Publish{Topic: "a", Value: "hello"})
	format, msg := recv(t, sub)
	assert.Equal(t, packet.FormatMsgpack, format)
	assert.Equal(t, packet.Publish{Topic: "a", Value: "hello"}, msg)

	sessions, err := h.engine.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, broker.TransportWebSocket, sessions[0].Transport)

	gauge, _ := h.metrics.GetGauge(metrics.WebSocketSessions, nil)
	assert.Equal(t, float64(2), gauge)
}

func TestWebSocket_FrameSplitAcrossMessages(t *testing.T) {
	h := newWSHarness(t, broker.Options{})
	conn := h.dial()

	frame, err := builder.Encode(packet.ListTopics{}, packet.FormatXML)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame[:2]))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frame[2:]))

	format, msg := recv(t, conn)
	assert.Equal(t, packet.FormatXML, format)
	assert.Equal(t, packet.TopicList{Topics: []string{}}, msg)
}

func TestWebSocket_ManagementPublishReachesWebSocket(t *testing.T) {
	h := newWSHarness(t, broker.Options{})
	sub := h.dial()
	send(t, sub, packet.FormatJSON, packet.Subscribe{Topic: "x/y"})
	h.waitSubscribers("x/y", 1)

	n, err := h.engine.Publish(context.Background(), "x", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, msg := recv(t, sub)
	assert.Equal(t, packet.Publish{Topic: "x", Value: "1"}, msg)
}

func TestWebSocket_TextMessageClosesConnection(t *testing.T) {
	h := newWSHarness(t, broker.Options{})
	conn := h.dial()
	send(t, conn, packet.FormatJSON, packet.Subscribe{Topic: "t"})
	h.waitSubscribers("t", 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseProtocolError), "got %v", err)

	require.Eventually(t, func() bool {
		st, err := h.engine.Stats(context.Background())
		return err == nil && st.Connections == 0 && st.Store.Subscriptions == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_MalformedFrameClosesConnection(t *testing.T) {
	h := newWSHarness(t, broker.Options{})
	conn := h.dial()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{7, 0, 1, 'x'}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseProtocolError), "got %v", err)
}

func TestWebSocket_ClientCloseDetaches(t *testing.T) {
	h := newWSHarness(t, broker.Options{})
	conn := h.dial()
	send(t, conn, packet.FormatJSON, packet.Subscribe{Topic: "t"})
	h.waitSubscribers("t", 1)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	require.Eventually(t, func() bool {
		st, err := h.engine.Stats(context.Background())
		return err == nil && st.Connections == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return h.module.ConnCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	closed, _ := h.metrics.GetCounter(metrics.ConnectionsClosed,
		map[string]string{"reason": string(coreerrors.CodePeerClosed)})
	assert.Equal(t, float64(1), closed)
}

func TestWebSocket_ConnectionLimit(t *testing.T) {
	h := newWSHarness(t, broker.Options{MaxConnections: 1})
	h.dial()
	require.Eventually(t, func() bool { return h.module.ConnCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	second := h.dial()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := second.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)
}

func TestWebSocket_StopClosesConnections(t *testing.T) {
	h := newWSHarness(t, broker.Options{})
	conn := h.dial()
	require.Eventually(t, func() bool { return h.module.ConnCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.module.Stop())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestServerConn_WriteQueueFull(t *testing.T) {
	sc := newServerConn(nil, 2, time.Second, corelog.NewNopLogger())
	require.NoError(t, sc.Write([]byte("ab")))
	require.NoError(t, sc.Write([]byte("cd")))
	assert.Equal(t, 4, sc.Pending())

	err := sc.Write([]byte("ef"))
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeSlowConsumer))
	assert.Equal(t, 4, sc.Pending())

	sc.Close(nil)
	assert.True(t, coreerrors.IsCode(sc.Write([]byte("gh")), coreerrors.CodePeerClosed))
}

func TestCloseCodeFor(t *testing.T) {
	tests := []struct {
		reason error
		code   int
	}{
		{nil, websocket.CloseNormalClosure},
		{coreerrors.ErrPeerClosed, websocket.CloseGoingAway},
		{coreerrors.ErrConnLimit, websocket.CloseTryAgainLater},
		{coreerrors.ErrSlowConsumer, websocket.ClosePolicyViolation},
		{coreerrors.ErrUnknownFormat, websocket.CloseProtocolError},
		{coreerrors.ErrFrameTooLarge, websocket.CloseProtocolError},
		{coreerrors.ErrSerializeFailed, websocket.CloseInternalServerErr},
	}
	for _, tt := range tests {
		code, _ := closeCodeFor(tt.reason)
		assert.Equal(t, tt.code, code, "%v", tt.reason)
	}
}
