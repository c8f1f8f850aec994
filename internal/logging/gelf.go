package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// messageWriter is the part of gelf.Writer the handler uses.
type messageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// GelfHandler is a slog.Handler that ships each record as a GELF message.
// Attributes become additional fields prefixed with an underscore.
type GelfHandler struct {
	mu     *sync.Mutex
	w      messageWriter
	host   string
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// DialGraylog opens a GELF UDP writer to address and wraps it in a handler.
func DialGraylog(address string, level slog.Leveler) (*GelfHandler, io.Closer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial graylog at %s: %w", address, err)
	}
	return NewGelfHandler(w, level), w, nil
}

// NewGelfHandler creates a handler writing to w.
func NewGelfHandler(w messageWriter, level slog.Leveler) *GelfHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GelfHandler{mu: &sync.Mutex{}, w: w, host: host, level: level}
}

// Enabled reports whether level meets the handler's minimum.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle converts r to a GELF message and writes it.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addExtra(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addExtra(extra, h.prefix, a)
		return true
	})

	short, full, _ := strings.Cut(r.Message, "\n")
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := &gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    short,
		Full:     full,
		TimeUnix: float64(ts.UnixNano()) / float64(time.Second),
		Level:    syslogLevel(r.Level),
		Facility: ServiceName,
		Extra:    extra,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.w.WriteMessage(msg)
}

// WithAttrs returns a handler that adds attrs to every message.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &c
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = h.prefix + name + "."
	return &c
}

func addExtra(extra map[string]interface{}, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			addExtra(extra, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	key := "_" + prefix + a.Key
	switch v.Kind() {
	case slog.KindString:
		extra[key] = v.String()
	case slog.KindInt64:
		extra[key] = v.Int64()
	case slog.KindUint64:
		extra[key] = v.Uint64()
	case slog.KindFloat64:
		extra[key] = v.Float64()
	case slog.KindBool:
		extra[key] = v.Bool()
	case slog.KindDuration:
		extra[key] = v.Duration().String()
	case slog.KindTime:
		extra[key] = v.Time().UTC().Format(time.RFC3339)
	default:
		if err, ok := v.Any().(error); ok {
			extra[key] = err.Error()
			return
		}
		extra[key] = fmt.Sprint(v.Any())
	}
}

// syslogLevel maps slog levels to the syslog severities GELF expects.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
