package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "", want: slog.LevelInfo},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: "info", Format: FormatJSON, Output: &buf, Component: "client"})

	logger.Debug("hidden")
	logger.Info("stored", "counter", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "stored", entry["msg"])
	assert.Equal(t, "medlock", entry["service"])
	assert.Equal(t, "client", entry["component"])
	assert.Equal(t, float64(3), entry["counter"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: "debug", Format: FormatText, Output: &buf})
	logger.Debug("debug line")
	assert.Contains(t, buf.String(), "msg=\"debug line\"")
	assert.True(t, ValidFormat(FormatText))
	assert.False(t, ValidFormat("yaml"))
}

func TestLoggingObservabilityHook(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: "debug", Output: &buf})
	hook := NewLoggingObservabilityHook(logger, func(err error) string { return "store_unavailable" })
	ctx := context.Background()

	hook.OnOperationStart(ctx, "store_record", map[string]any{"owner": "abc"})
	hook.OnOperationComplete(ctx, "store_record", 5*time.Millisecond, nil, nil)
	hook.OnOperationComplete(ctx, "store_record", time.Millisecond, errors.New("put failed"), nil)
	hook.OnRetry(ctx, "store_record", 1, errors.New("slot taken"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"operation started"`)
	assert.Contains(t, out, `"owner":"abc"`)
	assert.Contains(t, out, `"msg":"operation completed"`)
	assert.Contains(t, out, `"msg":"operation failed"`)
	assert.Contains(t, out, `"error_class":"store_unavailable"`)
	assert.Contains(t, out, `"msg":"operation retrying"`)
}

func TestMetricsObservabilityHook(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	hook := NewMetricsObservabilityHook(collector, func(error) string { return "decryption_failed" })
	ctx := context.Background()

	hook.OnOperationStart(ctx, "read_record", nil)
	hook.OnOperationComplete(ctx, "read_record", time.Millisecond, nil, nil)
	hook.OnOperationComplete(ctx, "read_record", time.Millisecond, errors.New("bad tag"), nil)
	hook.OnRetry(ctx, "read_record", 1, nil)

	op := map[string]string{"operation": "read_record"}
	assert.Equal(t, int64(1), collector.GetCounter("medlock.operation.started", op))
	assert.Equal(t, int64(1), collector.GetCounter("medlock.operation.succeeded", op))
	assert.Equal(t, int64(1), collector.GetCounter("medlock.operation.failed", map[string]string{
		"operation": "read_record", "error_class": "decryption_failed",
	}))
	assert.Equal(t, int64(1), collector.GetCounter("medlock.operation.retries", op))
	assert.Len(t, collector.GetTimings("medlock.operation.duration", map[string]string{"operation": "read_record", "status": "success"}), 1)
}

func TestCompositeObservabilityHook(t *testing.T) {
	a, b := NewInMemoryMetricsCollector(), NewInMemoryMetricsCollector()
	hook := NewCompositeObservabilityHook(NewMetricsObservabilityHook(a, nil), NewMetricsObservabilityHook(b, nil), NoOpObservabilityHook{})

	hook.OnOperationStart(context.Background(), "register", nil)
	tags := map[string]string{"operation": "register"}
	assert.Equal(t, int64(1), a.GetCounter("medlock.operation.started", tags))
	assert.Equal(t, int64(1), b.GetCounter("medlock.operation.started", tags))
}

func TestInMemoryMetricsCollector(t *testing.T) {
	c := NewInMemoryMetricsCollector()

	t.Run("tag order does not matter", func(t *testing.T) {
		c.IncrementCounter("x", map[string]string{"a": "1", "b": "2"})
		c.IncrementCounter("x", map[string]string{"b": "2", "a": "1"})
		assert.Equal(t, int64(2), c.GetCounter("x", map[string]string{"a": "1", "b": "2"}))
		assert.Equal(t, int64(2), c.Counters()["x,a=1,b=2"])
	})

	t.Run("concurrent increments", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.IncrementCounter("y", nil)
				c.RecordTiming("t", time.Millisecond, nil)
			}()
		}
		wg.Wait()
		assert.Equal(t, int64(50), c.GetCounter("y", nil))
		assert.Len(t, c.GetTimings("t", nil), 50)
	})

	assert.NoError(t, c.Flush())
	assert.NoError(t, NoOpMetricsCollector{}.Flush())
}
