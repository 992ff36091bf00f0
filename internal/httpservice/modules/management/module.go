// Package management 提供 Management API 模块
// 包含主题查询、管理端发布、统计和会话列表接口
package management

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"pubsub-core/internal/broker"
	"pubsub-core/internal/core/dispose"
	coreerrors "pubsub-core/internal/core/errors"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/httpservice"
)

// APIPrefix 管理 API 基础路径
const APIPrefix = "/api/v1"

// ManagementModule 管理 API 模块
type ManagementModule struct {
	*dispose.Dispose

	config  *httpservice.ManagementAPIModuleConfig
	engine  *broker.Engine
	metrics metrics.Metrics
}

// NewManagementModule 创建管理 API 模块
func NewManagementModule(ctx context.Context, config *httpservice.ManagementAPIModuleConfig) *ManagementModule {
	if config == nil {
		config = &httpservice.DefaultHTTPServiceConfig().Modules.ManagementAPI
	}
	return &ManagementModule{
		Dispose: dispose.New(ctx, nil),
		config:  config,
		metrics: metrics.NopMetrics{},
	}
}

// Name 返回模块名称
func (m *ManagementModule) Name() string {
	return "ManagementAPI"
}

// SetDependencies 注入依赖
func (m *ManagementModule) SetDependencies(deps *httpservice.ModuleDependencies) {
	m.engine = deps.Engine
	if deps.Metrics != nil {
		m.metrics = deps.Metrics
	}
}

// RegisterRoutes 注册路由
func (m *ManagementModule) RegisterRoutes(router *mux.Router) {
	if !m.config.Enabled {
		corelog.Infof("ManagementModule: disabled, skipping route registration")
		return
	}

	api := router.PathPrefix(APIPrefix).Subrouter()

	// 主题名可以包含 '/'
	api.HandleFunc("/topics", m.handleListTopics).Methods(http.MethodGet)
	api.HandleFunc("/topics/{name:.+}", m.handleGetTopic).Methods(http.MethodGet)
	if m.config.AllowPublish {
		api.HandleFunc("/topics/{name:.+}", m.handlePublish).Methods(http.MethodPost)
	}

	api.HandleFunc("/stats", m.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/sessions", m.handleListSessions).Methods(http.MethodGet)

	corelog.Infof("ManagementModule: registered API routes at %s/*", APIPrefix)
}

// Start 启动模块
func (m *ManagementModule) Start() error {
	if m.engine == nil {
		return coreerrors.New(coreerrors.CodeConfigError, "management module requires an engine")
	}
	return nil
}

// Stop 停止模块
func (m *ManagementModule) Stop() error {
	return m.Close().Err()
}

// respondEngineError 把引擎访问错误映射为 HTTP 状态码
func respondEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch coreerrors.GetCode(err) {
	case coreerrors.CodeTimeout:
		status = http.StatusGatewayTimeout
	case coreerrors.CodeServiceClosed, coreerrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	case coreerrors.CodeInvalidParam:
		status = http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	httpservice.RespondError(w, status, err.Error())
}

// parseJSONBody 解析 JSON 请求体
func parseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return coreerrors.Wrap(err, coreerrors.CodeInvalidParam, "invalid JSON body")
	}
	return nil
}
