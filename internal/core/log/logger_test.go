package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNopLogger 测试静默日志
func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()

	// 所有方法都不应该 panic
	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")
	logger.Debugf("test %s", "arg")
	logger.Infof("test %s", "arg")
	logger.Warnf("test %s", "arg")
	logger.Errorf("test %s", "arg")

	if _, ok := logger.WithField("key", "value").(NopLogger); !ok {
		t.Error("WithField should return NopLogger")
	}
	if _, ok := logger.WithFields(map[string]interface{}{"key": "value"}).(NopLogger); !ok {
		t.Error("WithFields should return NopLogger")
	}
	if _, ok := logger.WithError(nil).(NopLogger); !ok {
		t.Error("WithError should return NopLogger")
	}
}

// mockTestingT 模拟 testing.T
type mockTestingT struct {
	logs []string
}

func (m *mockTestingT) Log(args ...interface{}) {
	m.logs = append(m.logs, args[0].(string))
}

func (m *mockTestingT) Logf(format string, args ...interface{}) {
	m.logs = append(m.logs, format)
}

func TestTestLogger(t *testing.T) {
	mock := &mockTestingT{}
	logger := NewTestLogger(mock)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warnf("warn %s", "formatted")
	logger.Error("error message")

	require.Len(t, mock.logs, 4)
	assert.Equal(t, "[DEBUG] debug message", mock.logs[0])
	assert.Equal(t, "[WARN] warn formatted", mock.logs[2])

	mock.logs = nil
	logger.WithFields(map[string]interface{}{"topic": "a/b", "conn_id": 3}).Info("subscribed")
	require.Len(t, mock.logs, 1)
	assert.Equal(t, "[INFO] subscribed conn_id=3 topic=a/b", mock.logs[0])
}

func TestTestLogger_FieldsAreCopied(t *testing.T) {
	mock := &mockTestingT{}
	base := NewTestLogger(mock)
	child := base.WithField("conn_id", 1)

	base.Info("base")
	child.Info("child")

	require.Len(t, mock.logs, 2)
	assert.Equal(t, "[INFO] base", mock.logs[0])
	assert.Equal(t, "[INFO] child conn_id=1", mock.logs[1])
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)

	logger := NewLogrusLogger(l)
	logger.Debug("hidden")
	logger.WithField("topic", "sensors").Info("published")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"topic":"sensors"`)
	assert.Contains(t, out, `"msg":"published"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logrus.Level
		wantErr bool
	}{
		{"", logrus.InfoLevel, false},
		{"DEBUG", logrus.DebugLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"trace", logrus.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "broker.log")

	logger, closer, err := New(Config{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	logger.Debugf("listening on %s", "localhost:5000")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "listening on localhost:5000"))
}

func TestNew_InvalidFormat(t *testing.T) {
	_, _, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	mock := &mockTestingT{}
	SetDefault(NewTestLogger(mock))
	Infof("hello %d", 1)
	WithField("k", "v").Info("x")

	require.Len(t, mock.logs, 2)
	assert.Equal(t, "[INFO] hello 1", mock.logs[0])
	assert.Equal(t, "[INFO] x k=v", mock.logs[1])
}
