// Package schema defines configuration structure types
package schema

import "time"

// Fanout modes accepted by server.fanout_mode
const (
	FanoutDescendants = "descendants"
	FanoutAncestors   = "ancestors"
)

// Root is the top-level configuration structure
type Root struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Limits LimitsConfig `yaml:"limits" json:"limits"`
	HTTP   HTTPConfig   `yaml:"http" json:"http"`
	Notify NotifyConfig `yaml:"notify" json:"notify"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// ServerConfig contains the frame listener and engine settings
type ServerConfig struct {
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
	Backlog int    `yaml:"backlog" json:"backlog"`
	NodeID  string `yaml:"node_id" json:"node_id"`

	// MaxConnections 0 means unlimited
	MaxConnections int `yaml:"max_connections" json:"max_connections"`
	ReadBufferSize int `yaml:"read_buffer_size" json:"read_buffer_size"`
	// MaxPendingWrite is the unflushed byte count that marks a slow consumer, negative disables the check
	MaxPendingWrite   int    `yaml:"max_pending_write" json:"max_pending_write"`
	FanoutMode        string `yaml:"fanout_mode" json:"fanout_mode"`
	RetainOnSubscribe bool   `yaml:"retain_on_subscribe" json:"retain_on_subscribe"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// LimitsConfig contains per-connection limits
type LimitsConfig struct {
	// PublishRate is publishes per second per connection, 0 means unlimited
	PublishRate  float64 `yaml:"publish_rate" json:"publish_rate"`
	PublishBurst int     `yaml:"publish_burst" json:"publish_burst"`
}
