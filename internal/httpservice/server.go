package httpservice

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"pubsub-core/internal/core/dispose"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/safe"
	"pubsub-core/internal/health"
)

// HTTPService 统一 HTTP 服务
// 管理所有 HTTP 模块，提供统一的入口
type HTTPService struct {
	*dispose.Dispose

	config  *HTTPServiceConfig
	router  *mux.Router
	server  *http.Server
	modules []HTTPModule
	deps    *ModuleDependencies

	mountOnce sync.Once

	mu       sync.Mutex
	listener net.Listener
}

// HealthResponse 无健康管理器时的响应
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ReadyResponse 就绪检查响应
type ReadyResponse struct {
	Ready  bool   `json:"ready"`
	Status string `json:"status"`
}

// NewHTTPService 创建统一 HTTP 服务
func NewHTTPService(parentCtx context.Context, config *HTTPServiceConfig, deps *ModuleDependencies) *HTTPService {
	if config == nil {
		config = DefaultHTTPServiceConfig()
	}
	if deps == nil {
		deps = &ModuleDependencies{}
	}

	s := &HTTPService{
		config:  config,
		router:  mux.NewRouter().SkipClean(true),
		modules: make([]HTTPModule, 0),
		deps:    deps,
	}
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	s.Dispose = dispose.New(parentCtx, s.shutdown)
	return s
}

// RegisterModule 注册模块，必须在 Start 之前调用
func (s *HTTPService) RegisterModule(module HTTPModule) {
	if module == nil {
		return
	}
	module.SetDependencies(s.deps)
	s.modules = append(s.modules, module)
	corelog.Infof("HTTPService: registered module %s", module.Name())
}

// Handler 挂载中间件和路由后返回根处理器
func (s *HTTPService) Handler() http.Handler {
	s.mount()
	return s.router
}

func (s *HTTPService) mount() {
	s.mountOnce.Do(func() {
		s.router.Use(loggingMiddleware)
		s.router.Use(corsMiddleware(&s.config.CORS))
		if s.config.MaxBodySize > 0 {
			s.router.Use(bodySizeLimitMiddleware(s.config.MaxBodySize))
		}

		s.router.HandleFunc("/", s.handleLandingPage).Methods(http.MethodGet, http.MethodHead)
		s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
		s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)

		for _, module := range s.modules {
			module.RegisterRoutes(s.router)
		}
	})
}

// Start 监听并在后台提供服务
func (s *HTTPService) Start() error {
	if s.IsClosed() {
		return coreerrors.ErrServiceClosed
	}
	s.mount()

	for _, module := range s.modules {
		if err := module.Start(); err != nil {
			return coreerrors.Wrapf(err, coreerrors.CodeInternal, "start module %s", module.Name())
		}
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeNetworkError, "listen on %s", s.config.ListenAddr)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	safe.Go("http-serve", func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			corelog.Errorf("HTTPService: serve error: %v", err)
		}
	})

	s.logEndpoints(ln.Addr().String())
	return nil
}

// Addr 返回实际监听地址，未启动时为 nil
func (s *HTTPService) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop 停止模块并关闭服务器
func (s *HTTPService) Stop() error {
	return s.Close().Err()
}

func (s *HTTPService) shutdown() error {
	corelog.Infof("HTTPService: shutting down...")
	for i := len(s.modules) - 1; i >= 0; i-- {
		if err := s.modules[i].Stop(); err != nil {
			corelog.Warnf("HTTPService: failed to stop module %s: %v", s.modules[i].Name(), err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeTimeout, "http shutdown")
	}
	return nil
}

// handleHealthz 健康检查，非 healthy 返回 503
func (s *HTTPService) handleHealthz(w http.ResponseWriter, r *http.Request) {
	hm := s.deps.HealthManager
	if hm == nil {
		RespondJSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Time:   time.Now().Format(time.RFC3339),
		})
		return
	}

	info := hm.GetHealthInfo(r.Context())
	statusCode := http.StatusOK
	if info.Status != health.HealthStatusHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	RespondJSON(w, statusCode, info)
}

// handleReady 就绪检查
func (s *HTTPService) handleReady(w http.ResponseWriter, r *http.Request) {
	hm := s.deps.HealthManager
	if hm == nil || hm.IsAcceptingConnections() {
		RespondJSON(w, http.StatusOK, ReadyResponse{
			Ready:  true,
			Status: "accepting_connections",
		})
		return
	}
	RespondJSON(w, http.StatusServiceUnavailable, ReadyResponse{
		Ready:  false,
		Status: string(hm.GetStatus()),
	})
}

// handleLandingPage 返回简单的欢迎页面
func (s *HTTPService) handleLandingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>pubsub</title></head>
<body>
    <h1>pubsub broker</h1>
    <p>Management API: <code>/api/v1/topics</code>, <code>/api/v1/stats</code>, <code>/api/v1/sessions</code></p>
</body>
</html>`))
}

func (s *HTTPService) logEndpoints(addr string) {
	corelog.Infof("HTTPService: listening on http://%s", addr)
	corelog.Infof("  - GET http://%s/healthz", addr)
	corelog.Infof("  - GET http://%s/ready", addr)
	for _, module := range s.modules {
		corelog.Infof("HTTPService: module %s enabled", module.Name())
	}
}

// Router 获取路由器（供测试使用）
func (s *HTTPService) Router() *mux.Router {
	return s.router
}

// Config 获取配置
func (s *HTTPService) Config() *HTTPServiceConfig {
	return s.config
}
