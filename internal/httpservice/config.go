package httpservice

import "time"

// HTTPServiceConfig HTTP 服务配置
type HTTPServiceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`

	// 模块配置
	Modules ModulesConfig `yaml:"modules"`

	// 通用配置
	CORS        CORSConfig `yaml:"cors"`
	MaxBodySize int64      `yaml:"max_body_size"`
}

// ModulesConfig 模块配置
type ModulesConfig struct {
	ManagementAPI ManagementAPIModuleConfig `yaml:"management_api"`
	WebSocket     WebSocketModuleConfig     `yaml:"websocket"`
}

// ManagementAPIModuleConfig 管理 API 模块配置
type ManagementAPIModuleConfig struct {
	Enabled bool `yaml:"enabled"`
	// AllowPublish 允许通过 POST /api/v1/topics/{name} 发布
	AllowPublish bool `yaml:"allow_publish"`
}

// WebSocketModuleConfig WebSocket 传输模块配置
type WebSocketModuleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// SendQueue 每个连接待发送消息数上限，超过按慢消费者断开
	SendQueue    int           `yaml:"send_queue"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DefaultHTTPServiceConfig 返回默认配置
func DefaultHTTPServiceConfig() *HTTPServiceConfig {
	return &HTTPServiceConfig{
		Enabled:    false,
		ListenAddr: "localhost:5080",
		Modules: ModulesConfig{
			ManagementAPI: ManagementAPIModuleConfig{
				Enabled:      true,
				AllowPublish: true,
			},
			WebSocket: WebSocketModuleConfig{
				Enabled:      true,
				Path:         "/ws",
				SendQueue:    256,
				WriteTimeout: 10 * time.Second,
			},
		},
		CORS: CORSConfig{
			Enabled:        false,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		},
		MaxBodySize: 1 << 20,
	}
}
