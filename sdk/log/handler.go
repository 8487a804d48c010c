// Package log adapts structured logging (slog) to the plugin boundary:
// records are serialized and forwarded to the host's log_message import,
// so plugin logs land in the host's log stream with their attributes.
package log

import (
	"context"
	"log/slog"
)

// Handler implements slog.Handler by routing records through the host.
type Handler struct {
	opts  handlerConfig
	attrs []slog.Attr
	group string
}

// HandlerOption configures the Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level  slog.Level
	plugin string
}

// WithLevel sets the minimum level forwarded to the host. Records below
// it are dropped guest-side, before serialization.
func WithLevel(level slog.Level) HandlerOption {
	return func(c *handlerConfig) { c.level = level }
}

// WithPlugin stamps every record with the plugin name.
func WithPlugin(name string) HandlerOption {
	return func(c *handlerConfig) { c.plugin = name }
}

// NewHandler creates a Handler with the given options.
func NewHandler(opts ...HandlerOption) *Handler {
	cfg := handlerConfig{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{opts: cfg}
}

// Install makes a new Handler the process-wide default logger.
func Install(opts ...HandlerOption) {
	slog.SetDefault(slog.New(NewHandler(opts...)))
}

// Enabled reports whether records at the given level are forwarded.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

// WithGroup returns a handler qualifying attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		clone.group += "."
	}
	clone.group += name
	return &clone
}
