// Package websocket 提供 WebSocket 传输模块
// 客户端通过 WebSocket 二进制消息收发与 TCP 相同的帧
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"pubsub-core/internal/broker"
	"pubsub-core/internal/core/dispose"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/core/safe"
	"pubsub-core/internal/httpservice"
	"pubsub-core/internal/topic"
)

const bufferSize = 32 * 1024

// WebSocketModule WebSocket 传输模块
type WebSocketModule struct {
	*dispose.Dispose

	config   *httpservice.WebSocketModuleConfig
	engine   *broker.Engine
	metrics  metrics.Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[*ServerConn]struct{}
	writers *safe.WaitGroup
}

// NewWebSocketModule 创建 WebSocket 模块
func NewWebSocketModule(ctx context.Context, config *httpservice.WebSocketModuleConfig) *WebSocketModule {
	if config == nil {
		config = &httpservice.DefaultHTTPServiceConfig().Modules.WebSocket
	}
	m := &WebSocketModule{
		config:  config,
		metrics: metrics.NopMetrics{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns:   make(map[*ServerConn]struct{}),
		writers: safe.NewWaitGroup("websocket-writer"),
	}
	m.Dispose = dispose.New(ctx, m.closeAll)
	return m
}

// Name 返回模块名称
func (m *WebSocketModule) Name() string {
	return "WebSocket"
}

// SetDependencies 注入依赖
func (m *WebSocketModule) SetDependencies(deps *httpservice.ModuleDependencies) {
	m.engine = deps.Engine
	if deps.Metrics != nil {
		m.metrics = deps.Metrics
	}
}

// RegisterRoutes 注册路由
func (m *WebSocketModule) RegisterRoutes(router *mux.Router) {
	if !m.config.Enabled {
		corelog.Infof("WebSocketModule: disabled, skipping route registration")
		return
	}
	path := m.config.Path
	if path == "" {
		path = "/ws"
	}
	router.HandleFunc(path, m.handleWebSocket).Methods(http.MethodGet)
	corelog.Infof("WebSocketModule: registered route %s", path)
}

// Start 启动模块
func (m *WebSocketModule) Start() error {
	if m.config.Enabled && m.engine == nil {
		return coreerrors.New(coreerrors.CodeConfigError, "websocket module requires an engine")
	}
	return nil
}

// Stop 停止模块，关闭所有连接
func (m *WebSocketModule) Stop() error {
	return m.Close().Err()
}

// ConnCount 当前 WebSocket 连接数
func (m *WebSocketModule) ConnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

func (m *WebSocketModule) closeAll() error {
	m.mu.Lock()
	conns := make([]*ServerConn, 0, len(m.conns))
	for c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.Close(coreerrors.ErrServiceClosed)
	}
	m.writers.Wait()
	return nil
}

// handleWebSocket 升级连接并接入引擎，阻塞到连接结束
func (m *WebSocketModule) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if m.IsClosed() {
		httpservice.RespondError(w, http.StatusServiceUnavailable, "websocket transport stopped")
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		corelog.Warnf("WebSocketModule: upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	logger := corelog.WithField("remote", r.RemoteAddr)
	sc := newServerConn(conn, m.config.SendQueue, m.config.WriteTimeout, logger)

	id, err := m.engine.Attach(r.Context(), sc, broker.TransportWebSocket)
	if err != nil {
		logger.Warnf("WebSocketModule: attach rejected: %v", err)
		sc.Close(err)
		sc.writeLoop(func(error) {})
		return
	}

	m.track(sc, true)
	defer m.track(sc, false)

	m.writers.Go(func() { sc.writeLoop(func(err error) { _ = m.engine.Detach(id, err) }) })
	m.readLoop(id, sc)
	<-sc.Done()
}

// readLoop 读取二进制消息交给引擎，出错时释放会话
func (m *WebSocketModule) readLoop(id topic.ConnID, sc *ServerConn) {
	for {
		messageType, data, err := sc.conn.ReadMessage()
		if err != nil {
			reason := coreerrors.Wrap(err, coreerrors.CodePeerReset, "websocket read")
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = coreerrors.ErrPeerClosed
			}
			_ = m.engine.Detach(id, reason)
			sc.Close(reason)
			return
		}
		if messageType != websocket.BinaryMessage {
			reason := coreerrors.New(coreerrors.CodeProtocolError, "websocket frames must be binary messages")
			_ = m.engine.Detach(id, reason)
			sc.Close(reason)
			return
		}
		if err := m.engine.Feed(id, data); err != nil {
			sc.Close(err)
			return
		}
	}
}

func (m *WebSocketModule) track(sc *ServerConn, add bool) {
	m.mu.Lock()
	if add {
		m.conns[sc] = struct{}{}
	} else {
		delete(m.conns, sc)
	}
	n := len(m.conns)
	m.mu.Unlock()
	_ = m.metrics.SetGauge(metrics.WebSocketSessions, float64(n), nil)
}
