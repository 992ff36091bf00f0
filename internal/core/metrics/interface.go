package metrics

// Metrics 指标收集接口
// 引擎在事件循环中写入，管理 API 在其他 goroutine 中读取，实现必须并发安全
type Metrics interface {
	// Counter 操作
	IncrementCounter(name string, labels map[string]string) error
	AddCounter(name string, value float64, labels map[string]string) error
	GetCounter(name string, labels map[string]string) (float64, error)

	// Gauge 操作
	SetGauge(name string, value float64, labels map[string]string) error
	AddGauge(name string, delta float64, labels map[string]string) error
	GetGauge(name string, labels map[string]string) (float64, error)

	// Snapshot 返回所有指标的当前值，键为带标签的指标名
	Snapshot() Snapshot

	Close() error
}

// Snapshot 指标快照
type Snapshot struct {
	Counters map[string]float64 `json:"counters"`
	Gauges   map[string]float64 `json:"gauges"`
}

// 引擎使用的指标名
const (
	ConnectionsActive  = "connections_active"
	ConnectionsTotal   = "connections_total"
	ConnectionsClosed  = "connections_closed_total" // label: reason
	FramesIn           = "frames_in_total"          // label: format
	FramesOut          = "frames_out_total"         // label: format
	BytesIn            = "bytes_in_total"
	BytesOut           = "bytes_out_total"
	Publishes          = "publishes_total"
	Deliveries         = "deliveries_total"
	DecodeErrors       = "decode_errors_total" // label: code
	RateLimited        = "publish_rate_limited_total"
	Topics             = "topics"
	Subscriptions      = "subscriptions"
	NotifyDropped      = "notify_events_dropped_total"
	WebSocketSessions  = "websocket_sessions_active"
	ConnectionsRefused = "connections_refused_total"
)
