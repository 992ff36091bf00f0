package schema

import "time"

// HTTPConfig contains the management HTTP service settings
type HTTPConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Listen      string `yaml:"listen" json:"listen"`
	MaxBodySize int64  `yaml:"max_body_size" json:"max_body_size"`

	ManagementAPI ManagementAPIConfig `yaml:"management_api" json:"management_api"`
	WebSocket     WebSocketConfig     `yaml:"websocket" json:"websocket"`
	CORS          CORSConfig          `yaml:"cors" json:"cors"`
}

// ManagementAPIConfig contains the /api/v1 module settings
type ManagementAPIConfig struct {
	Enabled      bool `yaml:"enabled" json:"enabled"`
	AllowPublish bool `yaml:"allow_publish" json:"allow_publish"`
}

// WebSocketConfig contains the WebSocket transport settings
type WebSocketConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	Path         string        `yaml:"path" json:"path"`
	SendQueue    int           `yaml:"send_queue" json:"send_queue"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// CORSConfig contains CORS settings
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}
