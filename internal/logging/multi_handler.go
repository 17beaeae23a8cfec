package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler forwards each record to every registered sink. The bridge
// uses it to log to stdout and the systemd journal at the same time, each
// sink applying its own level gate.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler wraps the given sinks in a single handler.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	return &MultiHandler{sinks: sinks}
}

// Enabled reports whether any sink would accept a record at this level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every willing sink. A failing sink does not
// stop delivery to the others.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.sinks {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs distributes the attributes to every sink.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		sinks[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{sinks: sinks}
}

// WithGroup distributes the group to every sink.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(m.sinks))
	for i, h := range m.sinks {
		sinks[i] = h.WithGroup(name)
	}
	return &MultiHandler{sinks: sinks}
}
