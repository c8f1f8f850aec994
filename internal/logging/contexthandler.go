package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the attributes describing where the run currently is,
// such as the replay and the last sampled match time. It is called once per
// record and must be cheap.
type ContextProvider func() []slog.Attr

// ContextHandler adds the provider's attributes to every record. Keys already
// set on the record or bound with WithAttrs win over provided ones.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
	bound    map[string]struct{}
}

// NewContextHandler wraps inner with the run context from provider.
func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

// Enabled delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle appends the provided attributes that the record does not carry yet.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.inner.Handle(ctx, r)
	}
	provided := h.provider()
	if len(provided) == 0 {
		return h.inner.Handle(ctx, r)
	}

	present := make(map[string]struct{}, r.NumAttrs()+len(h.bound))
	for k := range h.bound {
		present[k] = struct{}{}
	}
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = struct{}{}
		return true
	})
	for _, a := range provided {
		if a.Key == "" {
			continue
		}
		if _, ok := present[a.Key]; ok {
			continue
		}
		r.AddAttrs(a)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs binds attrs on the inner handler and remembers their keys.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]struct{}, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = struct{}{}
	}
	for _, a := range attrs {
		bound[a.Key] = struct{}{}
	}
	return &ContextHandler{
		inner:    h.inner.WithAttrs(attrs),
		provider: h.provider,
		bound:    bound,
	}
}

// WithGroup opens a group on the inner handler. Provided attributes land in
// the group as well.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{
		inner:    h.inner.WithGroup(name),
		provider: h.provider,
		bound:    h.bound,
	}
}
