//go:build wasip1

package log

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fzracing/fz/internal/abi"
)

//go:wasmimport engine_host log_message
//nolint:revive // snake_case matches the WASM import convention
func host_log_message(messagePacked uint64)

// Handle serializes a record and forwards it to the host.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	payload, err := json.Marshal(h.serialize(record))
	if err != nil {
		// Last resort: stdout reaches the host's WASI pipe.
		fmt.Printf("sdk: marshaling log record failed: %v, message: %s\n", err, record.Message)
		return nil
	}

	packed := abi.PtrFromBytes(payload)
	host_log_message(packed)
	abi.DeallocatePacked(packed)
	return nil
}
