// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelslog correlates log records with the request being served.
//
// Records logged with a request context carry the active span under an
// "otel" group, along with any attributes attached to the context by
// [ContextWith], such as the prefix of the context serving the request.
package otelslog

import (
	"context"
	"log/slog"
	"slices"

	"github.com/z5labs/webserver/internal/slogfield"

	"go.opentelemetry.io/otel/trace"
)

type attrsKey struct{}

// ContextWith returns a copy of parent whose records will carry attrs
// in addition to any attached by an enclosing call.
func ContextWith(parent context.Context, attrs ...slog.Attr) context.Context {
	if len(attrs) == 0 {
		return parent
	}
	prev := attrsFrom(parent)
	return context.WithValue(parent, attrsKey{}, append(slices.Clip(prev), attrs...))
}

func attrsFrom(ctx context.Context) []slog.Attr {
	attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	return attrs
}

// Handler decorates records with the span and attributes carried
// by their context before passing them on.
type Handler struct {
	slog slog.Handler
}

// NewHandler wraps h. Wrapping a [*Handler] returns it unchanged.
func NewHandler(h slog.Handler) *Handler {
	if oh, ok := h.(*Handler); ok {
		return oh
	}
	return &Handler{slog: h}
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.slog.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	attrs := attrsFrom(ctx)
	spanCtx := trace.SpanContextFromContext(ctx)
	if len(attrs) == 0 && !spanCtx.IsValid() {
		return h.slog.Handle(ctx, record)
	}

	r := record.Clone()
	r.AddAttrs(attrs...)
	if spanCtx.IsValid() {
		r.AddAttrs(slog.Group(
			"otel",
			slogfield.String("trace_id", spanCtx.TraceID().String()),
			slogfield.String("span_id", spanCtx.SpanID().String()),
			slog.Bool("sampled", spanCtx.IsSampled()),
		))
	}
	return h.slog.Handle(ctx, r)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{slog: h.slog.WithAttrs(attrs)}
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{slog: h.slog.WithGroup(name)}
}
