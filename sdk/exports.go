//go:build wasip1

package sdk

import (
	"encoding/json"
	"fmt"

	"github.com/fzracing/fz/internal/abi"
	fzlog "github.com/fzracing/fz/sdk/log"
	"github.com/fzracing/fz/wire"
)

func setupLogging(plugin string) {
	fzlog.Install(fzlog.WithPlugin(plugin))
}

//go:wasmexport fz_manifest
func fzManifest() uint64 {
	if registered == nil {
		return respond(wire.Manifest{})
	}
	return respond(registered.Manifest())
}

//go:wasmexport fz_init
func fzInit(packed uint64) uint64 {
	var req wire.InitRequest
	if err := decodeRequest(packed, &req); err != nil {
		return respond(wire.InitResponse{Error: wire.FromError(err)})
	}
	if registered == nil {
		return respond(wire.InitResponse{Error: noPlugin()})
	}
	return respond(registered.HandleInit(req))
}

//go:wasmexport fz_dispatch
func fzDispatch(packed uint64) uint64 {
	var req wire.DispatchRequest
	if err := decodeRequest(packed, &req); err != nil {
		return respond(wire.DispatchResponse{Error: wire.FromError(err)})
	}
	if registered == nil {
		return respond(wire.DispatchResponse{Error: noPlugin()})
	}
	return respond(registered.HandleDispatch(req))
}

func noPlugin() *wire.ErrorDetail {
	return &wire.ErrorDetail{Type: "internal", Message: "no plugin registered"}
}

// decodeRequest copies a host request out of linear memory, frees the
// buffer, and unmarshals it.
func decodeRequest(packed uint64, v any) error {
	data := abi.BytesFromPtr(packed)
	abi.DeallocatePacked(packed)
	if len(data) == 0 {
		return fmt.Errorf("empty request")
	}
	return json.Unmarshal(data, v)
}

// respond marshals a response into tracked guest memory for the host to
// read. The host frees it through deallocate.
func respond(v any) uint64 {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error":{"type":"internal","message":%q}}`, err.Error()))
	}
	return abi.PtrFromBytes(data)
}
