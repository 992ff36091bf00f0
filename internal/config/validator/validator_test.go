package validator

import (
	"strings"
	"testing"

	"pubsub-core/internal/config/schema"
	"pubsub-core/internal/config/source"
)

func defaultConfig(t *testing.T) *schema.Root {
	t.Helper()
	cfg := &schema.Root{}
	if err := source.NewDefaultSource().LoadInto(cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func fields(r *ValidationResult) []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Field)
	}
	return out
}

func TestValidationResult_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		errors []ValidationError
		want   bool
	}{
		{"no errors", nil, true},
		{"empty errors", []ValidationError{}, true},
		{"has errors", []ValidationError{{Field: "test", Message: "error"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ValidationResult{Errors: tt.errors}
			if got := r.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationResult_Error(t *testing.T) {
	r := &ValidationResult{}
	if r.Error() != "" {
		t.Errorf("Error() on valid result = %q", r.Error())
	}
	r.AddError("server.port", "70000", "port out of range", "Use 5000")
	msg := r.Error()
	for _, want := range []string{"server.port", "70000", "port out of range", "Use 5000"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateConfig_Defaults(t *testing.T) {
	result := ValidateConfig(defaultConfig(t))
	if !result.IsValid() {
		t.Errorf("defaults should be valid:\n%s", result.Error())
	}
}

func TestValidateConfig_SingleFieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*schema.Root)
		field  string
	}{
		{"port too large", func(c *schema.Root) { c.Server.Port = 70000 }, "server.port"},
		{"bad host", func(c *schema.Root) { c.Server.Host = "not a host" }, "server.host"},
		{"negative max connections", func(c *schema.Root) { c.Server.MaxConnections = -1 }, "server.max_connections"},
		{"tiny read buffer", func(c *schema.Root) { c.Server.ReadBufferSize = 10 }, "server.read_buffer_size"},
		{"pending below one frame", func(c *schema.Root) { c.Server.MaxPendingWrite = 100 }, "server.max_pending_write"},
		{"fanout mode", func(c *schema.Root) { c.Server.FanoutMode = "siblings" }, "server.fanout_mode"},
		{"negative rate", func(c *schema.Root) { c.Limits.PublishRate = -1 }, "limits.publish_rate"},
		{"http listen", func(c *schema.Root) { c.HTTP.Enabled = true; c.HTTP.Listen = "nope" }, "http.listen"},
		{"websocket path", func(c *schema.Root) { c.HTTP.Enabled = true; c.HTTP.WebSocket.Path = "ws" }, "http.websocket.path"},
		{"redis without addr", func(c *schema.Root) { c.Notify.Type = schema.NotifyRedis; c.Notify.Redis.Addr = "" }, "notify.redis.addr"},
		{"notify type", func(c *schema.Root) { c.Notify.Type = "kafka" }, "notify.type"},
		{"log level", func(c *schema.Root) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *schema.Root) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.modify(cfg)
			result := ValidateConfig(cfg)
			got := fields(result)
			if len(got) != 1 || got[0] != tt.field {
				t.Errorf("errors = %v, want [%s]", got, tt.field)
			}
		})
	}
}

func TestValidateConfig_DisabledPendingLimitAllowed(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Server.MaxPendingWrite = -1
	if result := ValidateConfig(cfg); !result.IsValid() {
		t.Errorf("negative max_pending_write should be valid:\n%s", result.Error())
	}
}

func TestValidateConfig_ReportsAllErrors(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Server.Port = -5
	cfg.Server.FanoutMode = ""
	cfg.Log.Level = "loud"

	result := ValidateConfig(cfg)
	if len(result.Errors) != 3 {
		t.Errorf("errors = %v, want 3", fields(result))
	}
}

func TestValidator_AddRule(t *testing.T) {
	v := NewValidator()
	v.AddRule(func(cfg *schema.Root, result *ValidationResult) {
		if cfg.Server.NodeID == "" {
			result.AddError("server.node_id", "", "node id required", "")
		}
	})
	result := v.Validate(defaultConfig(t))
	if got := fields(result); len(got) != 1 || got[0] != "server.node_id" {
		t.Errorf("errors = %v", got)
	}
}
