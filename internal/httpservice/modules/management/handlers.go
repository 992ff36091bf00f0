package management

import (
	"net/http"

	"github.com/gorilla/mux"

	"pubsub-core/internal/broker"
	corelog "pubsub-core/internal/core/log"
	"pubsub-core/internal/core/metrics"
	"pubsub-core/internal/core/safe"
	"pubsub-core/internal/httpservice"
)

// PublishRequest 管理端发布请求
type PublishRequest struct {
	Value string `json:"value"`
}

// PublishResponse 管理端发布结果
type PublishResponse struct {
	Topic      string `json:"topic"`
	Deliveries int    `json:"deliveries"`
}

// StatsResponse 统计响应
type StatsResponse struct {
	Engine     broker.Stats     `json:"engine"`
	Metrics    metrics.Snapshot `json:"metrics"`
	Goroutines safe.Stats       `json:"goroutines"`
}

// handleListTopics 列出主题
func (m *ManagementModule) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := m.engine.ListTopics(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	httpservice.RespondJSON(w, http.StatusOK, topics)
}

// handleGetTopic 主题详情
func (m *ManagementModule) handleGetTopic(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	info, ok, err := m.engine.TopicInfo(r.Context(), name)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if !ok {
		httpservice.RespondError(w, http.StatusNotFound, "topic not found: "+name)
		return
	}
	httpservice.RespondJSON(w, http.StatusOK, info)
}

// handlePublish 管理端发布，与客户端发布走同一扇出路径
func (m *ManagementModule) handlePublish(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req PublishRequest
	if err := parseJSONBody(r, &req); err != nil {
		httpservice.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := m.engine.Publish(r.Context(), name, req.Value)
	if err != nil {
		corelog.Warnf("ManagementModule: publish to %q failed: %v", name, err)
		respondEngineError(w, err)
		return
	}
	httpservice.RespondJSON(w, http.StatusOK, PublishResponse{Topic: name, Deliveries: n})
}

// handleStats 引擎统计和指标快照
func (m *ManagementModule) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := m.engine.Stats(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	httpservice.RespondJSON(w, http.StatusOK, StatsResponse{
		Engine:     st,
		Metrics:    m.metrics.Snapshot(),
		Goroutines: safe.GetStats(),
	})
}

// handleListSessions 列出会话
func (m *ManagementModule) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := m.engine.Sessions(r.Context())
	if err != nil {
		respondEngineError(w, err)
		return
	}
	httpservice.RespondJSON(w, http.StatusOK, sessions)
}

