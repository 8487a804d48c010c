package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero/api"

	"github.com/fzracing/fz/internal/abi"
	"github.com/fzracing/fz/wire"
)

// Plugin is one loaded plugin seen through its lifecycle surface. The
// wazero-backed Instance implements it; native in-process apps can too,
// which is what the sdktest harness does.
type Plugin interface {
	Manifest(ctx context.Context) (wire.Manifest, error)
	Init(ctx context.Context, req wire.InitRequest) (wire.InitResponse, error)
	Dispatch(ctx context.Context, req wire.DispatchRequest) (wire.DispatchResponse, error)
	Close(ctx context.Context) error
}

// PluginFactory instantiates a fresh Plugin. Sessions call it once per
// world member so client and server state never share an instance.
type PluginFactory func(ctx context.Context) (Plugin, error)

// Instance is a loaded WASM plugin. All methods must be called from a
// single goroutine; the module is not reentrant.
type Instance struct {
	module api.Module
	logger *slog.Logger
}

// Manifest calls the fz_manifest export.
func (p *Instance) Manifest(ctx context.Context) (wire.Manifest, error) {
	var manifest wire.Manifest
	packed, err := p.callRaw(ctx, "fz_manifest", nil)
	if err != nil {
		return manifest, err
	}
	err = p.unmarshalPacked(ctx, packed, &manifest)
	return manifest, err
}

// Init calls the fz_init export. A populated InitResponse.Error means the
// plugin rejected the request (bad config, unknown mode); the instance
// stays loaded but must not be dispatched to.
func (p *Instance) Init(ctx context.Context, req wire.InitRequest) (wire.InitResponse, error) {
	var resp wire.InitResponse
	if err := p.callJSON(ctx, "fz_init", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Dispatch calls the fz_dispatch export for one system invocation.
func (p *Instance) Dispatch(ctx context.Context, req wire.DispatchRequest) (wire.DispatchResponse, error) {
	var resp wire.DispatchResponse
	if err := p.callJSON(ctx, "fz_dispatch", req, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

// Close releases the underlying module.
func (p *Instance) Close(ctx context.Context) error {
	return p.module.Close(ctx)
}

func (p *Instance) callJSON(ctx context.Context, name string, req, resp any) error {
	input, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", name, err)
	}
	packed, err := p.callRaw(ctx, name, input)
	if err != nil {
		return err
	}
	return p.unmarshalPacked(ctx, packed, resp)
}

// callRaw writes input into guest memory via allocate, invokes the export
// with packed ptr/len, and returns the packed result.
func (p *Instance) callRaw(ctx context.Context, name string, input []byte) (uint64, error) {
	f := p.module.ExportedFunction(name)
	if f == nil {
		return 0, fmt.Errorf("export %q not found", name)
	}

	var results []uint64
	var err error

	if len(input) == 0 {
		results, err = f.Call(ctx)
	} else {
		allocate := p.module.ExportedFunction("allocate")
		if allocate == nil {
			return 0, fmt.Errorf("guest does not export 'allocate'")
		}
		resAlloc, errAlloc := allocate.Call(ctx, uint64(len(input)))
		if errAlloc != nil {
			return 0, fmt.Errorf("allocating in guest: %w", errAlloc)
		}
		if len(resAlloc) == 0 {
			return 0, fmt.Errorf("allocate returned no results")
		}
		ptr := uint32(resAlloc[0])
		if !p.module.Memory().Write(ptr, input) {
			return 0, fmt.Errorf("writing input to guest memory")
		}
		results, err = f.Call(ctx, abi.PackPtrLen(ptr, uint32(len(input))))
	}

	if err != nil {
		return 0, fmt.Errorf("calling %s: %w", name, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

func (p *Instance) unmarshalPacked(ctx context.Context, packed uint64, v any) error {
	ptr, length := abi.UnpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return fmt.Errorf("null response from plugin")
	}
	view, ok := p.module.Memory().Read(ptr, length)
	if !ok {
		return fmt.Errorf("reading response from guest memory")
	}
	// Copy before releasing: the guest pins the buffer until deallocate.
	data := make([]byte, length)
	copy(data, view)
	if dealloc := p.module.ExportedFunction("deallocate"); dealloc != nil {
		if _, err := dealloc.Call(ctx, uint64(ptr), uint64(length)); err != nil {
			return fmt.Errorf("releasing response buffer: %w", err)
		}
	}
	return json.Unmarshal(data, v)
}
