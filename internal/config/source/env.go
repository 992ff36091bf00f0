package source

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pubsub-core/internal/config/schema"
)

// EnvSource loads configuration from environment variables
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new EnvSource with the specified prefix
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix: prefix,
	}
}

// Name returns the source name
func (s *EnvSource) Name() string {
	return "env"
}

// Priority returns the source priority
func (s *EnvSource) Priority() int {
	return PriorityEnv
}

// LoadInto loads environment variables into the config structure
func (s *EnvSource) LoadInto(cfg *schema.Root) error {
	// Server
	s.loadString("SERVER_HOST", &cfg.Server.Host)
	s.loadInt("SERVER_PORT", &cfg.Server.Port)
	s.loadInt("SERVER_BACKLOG", &cfg.Server.Backlog)
	s.loadString("SERVER_NODE_ID", &cfg.Server.NodeID)
	s.loadInt("SERVER_MAX_CONNECTIONS", &cfg.Server.MaxConnections)
	s.loadInt("SERVER_READ_BUFFER_SIZE", &cfg.Server.ReadBufferSize)
	s.loadInt("SERVER_MAX_PENDING_WRITE", &cfg.Server.MaxPendingWrite)
	s.loadString("SERVER_FANOUT_MODE", &cfg.Server.FanoutMode)
	s.loadBool("SERVER_RETAIN_ON_SUBSCRIBE", &cfg.Server.RetainOnSubscribe)
	s.loadDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Limits
	s.loadFloat("LIMITS_PUBLISH_RATE", &cfg.Limits.PublishRate)
	s.loadInt("LIMITS_PUBLISH_BURST", &cfg.Limits.PublishBurst)

	// HTTP
	s.loadBool("HTTP_ENABLED", &cfg.HTTP.Enabled)
	s.loadString("HTTP_LISTEN", &cfg.HTTP.Listen)
	s.loadInt64("HTTP_MAX_BODY_SIZE", &cfg.HTTP.MaxBodySize)
	s.loadBool("HTTP_MANAGEMENT_API_ENABLED", &cfg.HTTP.ManagementAPI.Enabled)
	s.loadBool("HTTP_MANAGEMENT_API_ALLOW_PUBLISH", &cfg.HTTP.ManagementAPI.AllowPublish)
	s.loadBool("HTTP_WEBSOCKET_ENABLED", &cfg.HTTP.WebSocket.Enabled)
	s.loadString("HTTP_WEBSOCKET_PATH", &cfg.HTTP.WebSocket.Path)
	s.loadInt("HTTP_WEBSOCKET_SEND_QUEUE", &cfg.HTTP.WebSocket.SendQueue)
	s.loadDuration("HTTP_WEBSOCKET_WRITE_TIMEOUT", &cfg.HTTP.WebSocket.WriteTimeout)
	s.loadBool("HTTP_CORS_ENABLED", &cfg.HTTP.CORS.Enabled)
	s.loadStringSlice("HTTP_CORS_ORIGINS", &cfg.HTTP.CORS.AllowedOrigins)

	// Notify
	s.loadString("NOTIFY_TYPE", &cfg.Notify.Type)
	s.loadString("NOTIFY_CHANNEL_PREFIX", &cfg.Notify.ChannelPrefix)
	s.loadInt("NOTIFY_BUFFER_SIZE", &cfg.Notify.BufferSize)
	s.loadString("REDIS_ADDR", &cfg.Notify.Redis.Addr)
	s.loadSecret("REDIS_PASSWORD", &cfg.Notify.Redis.Password)
	s.loadInt("REDIS_DB", &cfg.Notify.Redis.DB)
	s.loadInt("REDIS_POOL_SIZE", &cfg.Notify.Redis.PoolSize)

	// Log
	s.loadString("LOG_LEVEL", &cfg.Log.Level)
	s.loadString("LOG_FORMAT", &cfg.Log.Format)
	s.loadString("LOG_FILE", &cfg.Log.File)
	s.loadBool("LOG_CONSOLE", &cfg.Log.Console)

	return nil
}

// getEnv gets environment variable with the configured prefix
func (s *EnvSource) getEnv(key string) (string, bool) {
	prefixedKey := s.prefix + "_" + key
	if v := os.Getenv(prefixedKey); v != "" {
		return v, true
	}
	return "", false
}

func (s *EnvSource) loadString(key string, target *string) {
	if v, ok := s.getEnv(key); ok {
		*target = v
	}
}

func (s *EnvSource) loadSecret(key string, target *schema.Secret) {
	if v, ok := s.getEnv(key); ok {
		*target = schema.Secret(v)
	}
}

func (s *EnvSource) loadBool(key string, target *bool) {
	if v, ok := s.getEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func (s *EnvSource) loadInt(key string, target *int) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func (s *EnvSource) loadInt64(key string, target *int64) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			*target = i
		}
	}
}

func (s *EnvSource) loadFloat(key string, target *float64) {
	if v, ok := s.getEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func (s *EnvSource) loadDuration(key string, target *time.Duration) {
	if v, ok := s.getEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}

func (s *EnvSource) loadStringSlice(key string, target *[]string) {
	if v, ok := s.getEnv(key); ok {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

