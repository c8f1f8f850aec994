package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_Destination(t *testing.T) {
	t.Run("file only", func(t *testing.T) {
		restore := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("Players registered")

		assert.Contains(t, file.String(), "Players registered")
		assert.Empty(t, restore(), "a log file keeps stdout clean")
	})

	t.Run("stdout fallback", func(t *testing.T) {
		restore := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("Starting sampler")

		assert.Contains(t, restore(), "Starting sampler")
	})
}

func TestSetup_Level(t *testing.T) {
	for _, tc := range []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"warn", false},
	} {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tc.level, nil)

			m.Logger().Debug("No player resource yet")
			m.Logger().Error("Sampling failed")

			assert.Equal(t, tc.wantDebug, strings.Contains(buf.String(), "No player resource yet"))
			assert.Contains(t, buf.String(), "Sampling failed")
		})
	}
}

func TestSetup_SecondCallSwitchesOutput(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup(&first, "info", nil)
	m.Logger().Info("matchTime=30")
	m.Setup(&second, "info", nil)
	m.Logger().Info("matchTime=60")

	assert.Contains(t, first.String(), "matchTime=30")
	assert.NotContains(t, first.String(), "matchTime=60")
	assert.Contains(t, second.String(), "matchTime=60")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestFlush_NilProvider(t *testing.T) {
	assert.NoError(t, NewSlogManager().Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	want := map[string]slog.Level{
		"debug": slog.LevelDebug, "DEBUG": slog.LevelDebug,
		"info": slog.LevelInfo, "warn": slog.LevelWarn,
		"WARN": slog.LevelWarn, "error": slog.LevelError,
		"": slog.LevelInfo, "verbose": slog.LevelInfo,
	}
	for in, lvl := range want {
		assert.Equal(t, lvl, parseLevel(in), "%q", in)
	}
}

func TestMultiHandler_Sinks(t *testing.T) {
	var console, gelf bytes.Buffer
	multi := NewMultiHandler(
		nil,
		slog.NewTextHandler(&console, nil),
		nil,
		slog.NewJSONHandler(&gelf, nil),
	)
	require.Len(t, multi.handlers, 2, "nil sinks are dropped")

	slog.New(multi).Info("Finished sampling replay", "samples", 4)
	assert.Contains(t, console.String(), "samples=4")
	assert.Contains(t, gelf.String(), `"samples":4`)
}

func TestMultiHandler_Enabled(t *testing.T) {
	ctx := context.Background()
	info := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})

	assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
	assert.False(t, NewMultiHandler(info).Enabled(ctx, slog.LevelDebug))
	assert.True(t, NewMultiHandler(info, debug).Enabled(ctx, slog.LevelDebug))
}

func TestMultiHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))

	logger := slog.New(multi.WithAttrs([]slog.Attr{slog.String("backend", "archive")}))
	logger.WithGroup("ward").Info("Ward placed", "x", 64)

	out := buf.String()
	assert.Contains(t, out, "backend=archive")
	assert.Contains(t, out, "ward.x=64")
	assert.Same(t, multi, multi.WithGroup(""))
}

func TestFlush_WithProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider() // no exporter, just validates non-nil path
	m := NewSlogManager()

	var buf bytes.Buffer
	m.Setup(&buf, "info", provider)

	err := m.Flush(context.Background())
	assert.NoError(t, err)
}

// errorHandler is a slog.Handler that always returns an error from Handle.
type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(_ context.Context, _ slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	// First handler errors, second (spy) should still receive the record.
	multi := NewMultiHandler(&errorHandler{}, spy)
	logger := slog.New(multi)
	logger.Info("should reach spy")

	assert.Contains(t, buf.String(), "should reach spy")

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "direct", 0)
	assert.EqualError(t, multi.Handle(context.Background(), r), "handler error")
}

func TestMultiHandler_SkipsDisabledSinks(t *testing.T) {
	var info, debug bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	slog.New(multi).Debug("tick read")

	assert.Empty(t, info.String())
	assert.Contains(t, debug.String(), "tick read")
}

func TestContextHandler_RecordKeysWin(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.String("replay", "match.dem"), slog.Int("matchTime", 60), {}}
	})
	logger := slog.New(h)

	logger.Info("starting", "replay", "/replays/match.dem")
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "replay="))
	assert.Contains(t, out, "replay=/replays/match.dem")
	assert.Contains(t, out, "matchTime=60")

	buf.Reset()
	logger.With("matchTime", 30).Info("bound")
	assert.Equal(t, 1, strings.Count(buf.String(), "matchTime="))
	assert.Contains(t, buf.String(), "matchTime=30")
	assert.Contains(t, buf.String(), "replay=match.dem")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil), nil)).Info("plain")
	assert.Contains(t, buf.String(), "plain")
}

func TestSetup_WithContextProvider(t *testing.T) {
	var buf bytes.Buffer
	matchTime := 0
	m := NewSlogManager()
	m.Setup(&buf, "info", nil, WithContext(func() []slog.Attr {
		return []slog.Attr{slog.String("replay", "7400000001.dem"), slog.Int("matchTime", matchTime)}
	}))

	matchTime = 90
	m.Logger().Info("sampled")

	assert.Contains(t, buf.String(), "replay=7400000001.dem")
	assert.Contains(t, buf.String(), "matchTime=90")
}

func TestSetup_WithHandler(t *testing.T) {
	var file, extra bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "warn", nil, WithHandler(slog.NewJSONHandler(&extra, nil)))

	m.Logger().Warn("slot unresolved", "slot", 3)

	assert.Contains(t, file.String(), "slot unresolved")
	assert.Contains(t, extra.String(), `"slot":3`)
}

func TestClose_WithoutGraylog(t *testing.T) {
	m := NewSlogManager()
	m.Setup(&bytes.Buffer{}, "info", nil)
	assert.NoError(t, m.Close())
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
}

// captureStdout redirects os.Stdout to a pipe and returns a function
// that restores stdout and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	origStdout := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = origStdout
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
