package logging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	messages []*gelf.Message
	err      error
}

func (c *captureWriter) WriteMessage(m *gelf.Message) error {
	c.messages = append(c.messages, m)
	return c.err
}

func TestGelfHandler_Message(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGelfHandler(w, slog.LevelInfo))

	logger.Warn("inventory slot unresolved\nhandle 0x4d2", "slot", 3, "hero", "npc_dota_hero_axe", "err", errors.New("no entity"))

	require.Len(t, w.messages, 1)
	m := w.messages[0]
	assert.Equal(t, "1.1", m.Version)
	assert.Equal(t, "inventory slot unresolved", m.Short)
	assert.Equal(t, "handle 0x4d2", m.Full)
	assert.Equal(t, int32(4), m.Level)
	assert.Equal(t, ServiceName, m.Facility)
	assert.NotZero(t, m.TimeUnix)
	assert.Equal(t, int64(3), m.Extra["_slot"])
	assert.Equal(t, "npc_dota_hero_axe", m.Extra["_hero"])
	assert.Equal(t, "no entity", m.Extra["_err"])
}

func TestGelfHandler_LevelFilter(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGelfHandler(w, slog.LevelWarn))

	logger.Info("dropped")
	logger.Debug("dropped")
	logger.Error("kept")

	require.Len(t, w.messages, 1)
	assert.Equal(t, "kept", w.messages[0].Short)
	assert.Equal(t, int32(3), w.messages[0].Level)
}

func TestGelfHandler_AttrsAndGroups(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGelfHandler(w, slog.LevelDebug)).
		With("replay", "match.dem").
		WithGroup("tick").
		With("n", 1800)

	logger.Debug("sampled", "matchTime", 30, slog.Group("gold", "current", 150), "took", time.Second)

	require.Len(t, w.messages, 1)
	extra := w.messages[0].Extra
	assert.Equal(t, int32(7), w.messages[0].Level)
	assert.Equal(t, "match.dem", extra["_replay"])
	assert.Equal(t, int64(1800), extra["_tick.n"])
	assert.Equal(t, int64(30), extra["_tick.matchTime"])
	assert.Equal(t, int64(150), extra["_tick.gold.current"])
	assert.Equal(t, "1s", extra["_tick.took"])
}

func TestGelfHandler_WriteError(t *testing.T) {
	w := &captureWriter{err: errors.New("network unreachable")}
	h := NewGelfHandler(w, slog.LevelInfo)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	assert.Error(t, h.Handle(context.Background(), r))
}

func TestSyslogLevel(t *testing.T) {
	assert.Equal(t, int32(7), syslogLevel(slog.LevelDebug))
	assert.Equal(t, int32(6), syslogLevel(slog.LevelInfo))
	assert.Equal(t, int32(4), syslogLevel(slog.LevelWarn))
	assert.Equal(t, int32(3), syslogLevel(slog.LevelError))
}
