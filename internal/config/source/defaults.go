package source

import (
	"time"

	"pubsub-core/internal/config/schema"
)

// Default values shared with validation and tests
const (
	DefaultHost            = "localhost"
	DefaultPort            = 5000
	DefaultBacklog         = 4096
	DefaultReadBufferSize  = 64 * 1024
	DefaultMaxPendingWrite = 4 << 20
	DefaultHTTPListen      = "localhost:5080"
	DefaultChannelPrefix   = "pubsub:"
)

// DefaultSource provides default configuration values
type DefaultSource struct{}

// NewDefaultSource creates a new DefaultSource
func NewDefaultSource() *DefaultSource {
	return &DefaultSource{}
}

// Name returns the source name
func (s *DefaultSource) Name() string {
	return "defaults"
}

// Priority returns the source priority
func (s *DefaultSource) Priority() int {
	return PriorityDefaults
}

// LoadInto loads default values into the configuration
func (s *DefaultSource) LoadInto(cfg *schema.Root) error {
	// Server defaults
	cfg.Server.Host = DefaultHost
	cfg.Server.Port = DefaultPort
	cfg.Server.Backlog = DefaultBacklog
	cfg.Server.MaxConnections = 0
	cfg.Server.ReadBufferSize = DefaultReadBufferSize
	cfg.Server.MaxPendingWrite = DefaultMaxPendingWrite
	cfg.Server.FanoutMode = schema.FanoutDescendants
	cfg.Server.RetainOnSubscribe = false
	cfg.Server.ShutdownTimeout = 10 * time.Second

	// Limits defaults
	cfg.Limits.PublishRate = 0
	cfg.Limits.PublishBurst = 0

	// HTTP defaults
	cfg.HTTP.Enabled = false
	cfg.HTTP.Listen = DefaultHTTPListen
	cfg.HTTP.MaxBodySize = 1 << 20
	cfg.HTTP.ManagementAPI.Enabled = true
	cfg.HTTP.ManagementAPI.AllowPublish = true
	cfg.HTTP.WebSocket.Enabled = true
	cfg.HTTP.WebSocket.Path = "/ws"
	cfg.HTTP.WebSocket.SendQueue = 256
	cfg.HTTP.WebSocket.WriteTimeout = 10 * time.Second
	cfg.HTTP.CORS.Enabled = false
	cfg.HTTP.CORS.AllowedOrigins = []string{"*"}

	// Notify defaults
	cfg.Notify.Type = schema.NotifyNone
	cfg.Notify.ChannelPrefix = DefaultChannelPrefix
	cfg.Notify.BufferSize = 1024
	cfg.Notify.Redis.Addr = "localhost:6379"
	cfg.Notify.Redis.DB = 0
	cfg.Notify.Redis.PoolSize = 10

	// Log defaults
	cfg.Log.Level = schema.LogLevelInfo
	cfg.Log.Format = schema.LogFormatText
	cfg.Log.File = ""
	cfg.Log.Console = true

	return nil
}
