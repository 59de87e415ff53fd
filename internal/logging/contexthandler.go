package logging

import (
	"context"
	"log/slog"
	"slices"
)

type attrsKey struct{}

// ContextWith returns a copy of ctx carrying attrs. A ContextHandler adds them to every
// record logged with that context, so request handlers can tag their log lines without
// threading a derived logger through every call.
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev := contextAttrs(ctx)
	return context.WithValue(ctx, attrsKey{}, append(slices.Clip(prev), attrs...))
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	return attrs
}

// AttrFunc returns attributes evaluated when a record is handled, such as the map a live
// session currently shows.
type AttrFunc func() []slog.Attr

// ContextHandler adds context attributes and dynamic attributes to each record.
type ContextHandler struct {
	inner   slog.Handler
	dynamic AttrFunc
}

// NewContextHandler wraps inner. dynamic may be nil.
func NewContextHandler(inner slog.Handler, dynamic AttrFunc) *ContextHandler {
	return &ContextHandler{inner: inner, dynamic: dynamic}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(contextAttrs(ctx)...)
	if h.dynamic != nil {
		r.AddAttrs(h.dynamic()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), dynamic: h.dynamic}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), dynamic: h.dynamic}
}
