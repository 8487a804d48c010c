//go:build wasip1

package sdk

import (
	"github.com/fzracing/fz/internal/abi"
)

//go:wasmimport engine_host emit_event
//nolint:revive // snake_case matches the WASM import convention
func host_emit_event(requestPacked uint64) uint64

func emitEvent(raw []byte) ([]byte, error) {
	packed := abi.PtrFromBytes(raw)
	respPacked := host_emit_event(packed)
	abi.DeallocatePacked(packed)

	out := abi.BytesFromPtr(respPacked)
	abi.DeallocatePacked(respPacked)
	return out, nil
}
