package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pubsub-core/internal/config/schema"
	"pubsub-core/internal/config/source"
	coreerrors "pubsub-core/internal/core/errors"
)

// stubSource records the order in which sources run
type stubSource struct {
	name     string
	priority int
	order    *[]string
	apply    func(*schema.Root)
	err      error
}

func (s *stubSource) Name() string  { return s.name }
func (s *stubSource) Priority() int { return s.priority }
func (s *stubSource) LoadInto(cfg *schema.Root) error {
	*s.order = append(*s.order, s.name)
	if s.apply != nil {
		s.apply(cfg)
	}
	return s.err
}

func TestLoader_Load_NoSources(t *testing.T) {
	if _, err := NewLoader().Load(); err == nil {
		t.Error("Load() should error when no sources are registered")
	}
}

func TestLoader_Load_PriorityOrder(t *testing.T) {
	var order []string
	l := NewLoader()
	l.SetSkipValidate(true)
	l.AddSource(&stubSource{name: "env", priority: source.PriorityEnv, order: &order,
		apply: func(c *schema.Root) { c.Server.Port = 3 }})
	l.AddSource(&stubSource{name: "defaults", priority: source.PriorityDefaults, order: &order,
		apply: func(c *schema.Root) { c.Server.Port = 1 }})
	l.AddSource(&stubSource{name: "yaml", priority: source.PriorityYAML, order: &order,
		apply: func(c *schema.Root) { c.Server.Port = 2 }})

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if strings.Join(order, ",") != "defaults,yaml,env" {
		t.Errorf("order = %v", order)
	}
	if cfg.Server.Port != 3 {
		t.Errorf("Port = %d, want 3", cfg.Server.Port)
	}
}

func TestLoader_Load_SourceError(t *testing.T) {
	var order []string
	l := NewLoader()
	l.AddSource(&stubSource{name: "broken", priority: 1, order: &order, err: os.ErrPermission})

	_, err := l.Load()
	if !coreerrors.IsCode(err, coreerrors.CodeConfigError) {
		t.Errorf("Load() error = %v, want CONFIG_ERROR", err)
	}
}

func TestLoader_Load_ValidationFails(t *testing.T) {
	l := NewLoader()
	l.AddSource(source.NewDefaultSource())
	var order []string
	l.AddSource(&stubSource{name: "bad", priority: source.PriorityEnv, order: &order,
		apply: func(c *schema.Root) { c.Server.FanoutMode = "sideways"; c.Log.Level = "chatty" }})

	_, err := l.Load()
	if err == nil {
		t.Fatal("Load() should fail validation")
	}
	for _, want := range []string{"server.fanout_mode", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestLoadServer_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pubsub.yaml")
	content := "server:\n  port: 6200\n  fanout_mode: ancestors\nlog:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PUBSUB_LOG_LEVEL", "debug")

	cfg, err := LoadServer(path)
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.Server.Port != 6200 {
		t.Errorf("Port = %d, want 6200 from file", cfg.Server.Port)
	}
	if cfg.Server.FanoutMode != schema.FanoutAncestors {
		t.Errorf("FanoutMode = %q", cfg.Server.FanoutMode)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want env to win over file", cfg.Log.Level)
	}
	if cfg.Server.Host != source.DefaultHost {
		t.Errorf("Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadServer_MissingExplicitFile(t *testing.T) {
	_, err := LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
	if !coreerrors.IsCode(err, coreerrors.CodeConfigError) {
		t.Errorf("LoadServer() error = %v, want CONFIG_ERROR", err)
	}
}
