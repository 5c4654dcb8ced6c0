package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleLoggerWritesModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LogLevelInfo).Module("batch")

	log.Info("batch emitted", Int("seq", 2), Float64("ratio", 0.123456), Duration("elapsed", 1500*time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, "module=batch")
	assert.Contains(t, out, "seq=2")
	assert.Contains(t, out, "ratio=0.123")
	assert.Contains(t, out, "elapsed=1.5s")
	assert.NotContains(t, out, "time=")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LogLevelWarn).Module("classifier")

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWriterLogger(&buf, LogLevelTrace).Module("tally").Trace("vote")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestSubModuleAndWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewWriterLogger(&buf, LogLevelInfo).Module("evaluation")
	child := base.Module("runner").With(String("source", "a.mp4"))

	child.Info("started")
	base.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "module=evaluation.runner")
	assert.Contains(t, lines[0], "source=a.mp4")
	assert.NotContains(t, lines[1], "source=")
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LogLevelInfo).Module("evaluation")

	log.WithContext(context.Background()).Info("no trace")
	log.WithContext(WithTraceID(context.Background(), "run-42")).Info("traced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "trace_id")
	assert.Contains(t, lines[1], "trace_id=run-42")
}

func TestModuleLevelsFallBackToParent(t *testing.T) {
	t.Parallel()

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Console:      &ConsoleOutput{Enabled: false},
		ModuleLevels: map[string]string{"evaluation": "debug"},
	})
	require.NoError(t, err)

	cl.mu.RLock()
	defer cl.mu.RUnlock()
	assert.Equal(t, parseLogLevel("debug"), cl.moduleLevelLocked("evaluation.runner"))
	assert.Equal(t, parseLogLevel("warn"), cl.moduleLevelLocked("batch"))
}

func TestFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "framegrade.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path},
	})
	require.NoError(t, err)

	cl.Module("datastore").Info("saved", Int("rows", 3))
	require.NoError(t, cl.Close())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"module":"datastore"`)
	assert.Contains(t, string(data), `"rows":3`)
	assert.Contains(t, string(data), `"msg":"saved"`)
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestErrorFieldNil(t *testing.T) {
	t.Parallel()

	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want LogLevel
	}{
		{"trace", LogLevelTrace},
		{"DEBUG", LogLevelDebug},
		{" warn ", LogLevelWarn},
		{"error", LogLevelError},
		{"bogus", LogLevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, parseSlogLevel(tt.want), parseLogLevel(tt.in))
		})
	}
}
