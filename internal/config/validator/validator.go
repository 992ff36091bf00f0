// Package validator provides configuration validation
package validator

import (
	"fmt"
	"net"
	"strings"

	"pubsub-core/internal/config/schema"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string // Field path (e.g., "server.port")
	Value   string // Current value (masked for secrets)
	Message string // Error message
	Hint    string // Fix suggestion
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a formatted error message
func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n\n")

	for i, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Field))
		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     Current value: %s\n", err.Value))
		}
		sb.WriteString(fmt.Sprintf("     Error: %s\n", err.Message))
		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     Hint: %s\n", err.Hint))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// AddError adds a validation error
func (r *ValidationResult) AddError(field, value, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Hint:    hint,
	})
}

// Validator validates configuration
type Validator struct {
	rules []ValidationRule
}

// ValidationRule is a function that validates configuration
type ValidationRule func(cfg *schema.Root, result *ValidationResult)

// NewValidator creates a new Validator with default rules
func NewValidator() *Validator {
	v := &Validator{
		rules: make([]ValidationRule, 0),
	}

	v.AddRule(validateServer)
	v.AddRule(validateLimits)
	v.AddRule(validateHTTP)
	v.AddRule(validateNotify)
	v.AddRule(validateLog)

	return v
}

// AddRule adds a validation rule
func (v *Validator) AddRule(rule ValidationRule) {
	v.rules = append(v.rules, rule)
}

// Validate runs every rule and collects all errors
func (v *Validator) Validate(cfg *schema.Root) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]ValidationError, 0),
	}

	for _, rule := range v.rules {
		rule(cfg, result)
	}

	return result
}

// ValidateConfig is a convenience function that creates a validator and validates
func ValidateConfig(cfg *schema.Root) *ValidationResult {
	return NewValidator().Validate(cfg)
}

// ============================================================================
// Validation Rules
// ============================================================================

func validateServer(cfg *schema.Root, result *ValidationResult) {
	s := cfg.Server

	// port 0 picks an ephemeral port
	if s.Port < 0 || s.Port > 65535 {
		result.AddError("server.port",
			fmt.Sprintf("%d", s.Port),
			"port must be between 0 and 65535",
			"Use a valid port number, e.g., 5000")
	}
	validateHost("server.host", s.Host, result)

	if s.Backlog < 0 {
		result.AddError("server.backlog", fmt.Sprintf("%d", s.Backlog),
			"backlog cannot be negative", "Use 0 for the system default")
	}
	if s.MaxConnections < 0 {
		result.AddError("server.max_connections", fmt.Sprintf("%d", s.MaxConnections),
			"max_connections cannot be negative", "Use 0 for unlimited")
	}
	if s.ReadBufferSize < 1024 {
		result.AddError("server.read_buffer_size", fmt.Sprintf("%d", s.ReadBufferSize),
			"read buffer must be at least 1024 bytes", "Use 65536")
	}
	if s.MaxPendingWrite > 0 && s.MaxPendingWrite < maxFrameSize {
		result.AddError("server.max_pending_write", fmt.Sprintf("%d", s.MaxPendingWrite),
			"max_pending_write is smaller than one frame",
			fmt.Sprintf("Use at least %d, or a negative value to disable the limit", maxFrameSize))
	}

	switch s.FanoutMode {
	case schema.FanoutDescendants, schema.FanoutAncestors:
	default:
		result.AddError("server.fanout_mode", s.FanoutMode,
			"invalid fanout mode", "Use one of: descendants, ancestors")
	}

	if s.ShutdownTimeout < 0 {
		result.AddError("server.shutdown_timeout", s.ShutdownTimeout.String(),
			"shutdown timeout cannot be negative", "Use e.g. 10s")
	}
}

func validateLimits(cfg *schema.Root, result *ValidationResult) {
	l := cfg.Limits
	if l.PublishRate < 0 {
		result.AddError("limits.publish_rate", fmt.Sprintf("%g", l.PublishRate),
			"publish rate cannot be negative", "Use 0 for unlimited")
	}
	if l.PublishBurst < 0 {
		result.AddError("limits.publish_burst", fmt.Sprintf("%d", l.PublishBurst),
			"publish burst cannot be negative", "Use 0 to derive it from the rate")
	}
}

func validateHTTP(cfg *schema.Root, result *ValidationResult) {
	h := cfg.HTTP
	if !h.Enabled {
		return
	}

	if _, port, err := net.SplitHostPort(h.Listen); err != nil || port == "" {
		result.AddError("http.listen", h.Listen,
			"invalid listen address", "Use host:port, e.g., localhost:5080")
	}

	if h.WebSocket.Enabled {
		if !strings.HasPrefix(h.WebSocket.Path, "/") {
			result.AddError("http.websocket.path", h.WebSocket.Path,
				"path must start with '/'", "Use e.g. /ws")
		}
		if h.WebSocket.SendQueue < 1 {
			result.AddError("http.websocket.send_queue", fmt.Sprintf("%d", h.WebSocket.SendQueue),
				"send queue must hold at least one frame", "Use 256")
		}
	}

	if !h.ManagementAPI.Enabled && !h.WebSocket.Enabled {
		result.AddError("http", "enabled",
			"HTTP service is enabled but has no modules",
			"Enable http.management_api or http.websocket, or disable http")
	}
}

func validateNotify(cfg *schema.Root, result *ValidationResult) {
	n := cfg.Notify
	switch n.Type {
	case "", schema.NotifyNone, schema.NotifyMemory:
	case schema.NotifyRedis:
		if n.Redis.Addr == "" {
			result.AddError("notify.redis.addr", "",
				"redis address is required when notify.type is redis",
				"Set notify.redis.addr or PUBSUB_REDIS_ADDR")
		}
		if n.Redis.DB < 0 {
			result.AddError("notify.redis.db", fmt.Sprintf("%d", n.Redis.DB),
				"redis db cannot be negative", "Use 0")
		}
	default:
		result.AddError("notify.type", n.Type,
			"invalid notify type", "Use one of: none, memory, redis")
	}

	if n.Type != "" && n.Type != schema.NotifyNone && n.BufferSize < 1 {
		result.AddError("notify.buffer_size", fmt.Sprintf("%d", n.BufferSize),
			"buffer size must be positive", "Use 1024")
	}
}

func validateLog(cfg *schema.Root, result *ValidationResult) {
	validateLogLevel("log.level", cfg.Log.Level, result)
	validateLogFormat("log.format", cfg.Log.Format, result)
}

// ============================================================================
// Helper Functions
// ============================================================================

// maxFrameSize is the largest encoded frame: tag, length and payload
const maxFrameSize = 3 + 65535

func validateHost(field, host string, result *ValidationResult) {
	if host == "" {
		return
	}
	if host != "localhost" && net.ParseIP(host) == nil {
		result.AddError(field,
			host,
			"invalid host address",
			"Use an IP address, localhost, or 0.0.0.0")
	}
}

func validateLogLevel(field, level string, result *ValidationResult) {
	validLevels := map[string]bool{
		schema.LogLevelDebug: true,
		schema.LogLevelInfo:  true,
		schema.LogLevelWarn:  true,
		schema.LogLevelError: true,
	}
	if !validLevels[level] && level != "" {
		result.AddError(field,
			level,
			"invalid log level",
			"Use one of: debug, info, warn, error")
	}
}

func validateLogFormat(field, format string, result *ValidationResult) {
	validFormats := map[string]bool{
		schema.LogFormatText: true,
		schema.LogFormatJSON: true,
	}
	if !validFormats[format] && format != "" {
		result.AddError(field,
			format,
			"invalid log format",
			"Use one of: text, json")
	}
}
