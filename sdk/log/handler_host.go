//go:build !wasip1

package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Handle for native builds writes records to stderr. Used by host-side
// tests and the sdktest harness.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	msg := h.serialize(record)
	fmt.Fprintf(os.Stderr, "[%s] %s %s", msg.Level, msg.Context.Plugin, msg.Message)
	for _, attr := range msg.Attrs {
		fmt.Fprintf(os.Stderr, " %s=%s", attr.Key, attr.Value)
	}
	fmt.Fprintln(os.Stderr)
	return nil
}
