// Package engine implements the host runtime: a wazero-backed executor
// that loads plugin artifacts, the host function boundary, and the session
// loop that drives plugin schedules over host-owned worlds.
//
// The engine owns every plugin's lifetime (Unloaded, Initialized, Running,
// Unloaded again) and serializes all calls into a module: plugins never see
// concurrent invocations and may not block inside one.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/fzracing/fz/engine/hostfuncs"
)

// HostModule is the import namespace plugins link their host functions
// against.
const HostModule = "engine_host"

// DefaultMemoryPages caps plugin linear memory at 64 MB (1024 x 64 KB).
const DefaultMemoryPages = 1024

// Executor owns a wazero runtime configured for plugin execution.
type Executor struct {
	runtime     wazero.Runtime
	registry    *hostfuncs.HandlerRegistry
	logger      *slog.Logger
	memoryPages uint32
	nextModule  atomic.Uint64
}

// Option configures the Executor.
type Option func(*Executor)

// WithHostFunctions sets the host function registry plugins can call.
func WithHostFunctions(registry *hostfuncs.HandlerRegistry) Option {
	return func(e *Executor) { e.registry = registry }
}

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// WithMemoryLimitPages caps plugin linear memory in 64 KB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(e *Executor) { e.memoryPages = pages }
}

// NewExecutor creates an executor. The caller must Close it.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{
		logger:      slog.Default(),
		memoryPages: DefaultMemoryPages,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		reg, err := hostfuncs.NewRegistry(
			hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware()),
			hostfuncs.WithBundle(hostfuncs.EventBundle(hostfuncs.DiscardEvents)),
		)
		if err != nil {
			return nil, fmt.Errorf("building default registry: %w", err)
		}
		e.registry = reg
	}

	rtCfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(e.memoryPages)
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerHostModule(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("registering host module: %w", err)
	}

	e.logger.Debug("executor created",
		"memory_pages", e.memoryPages,
		"host_functions", e.registry.Names(),
	)
	return e, nil
}

// Close releases the runtime and every module instantiated from it.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Load compiles and instantiates a plugin artifact, verifying the export
// contract before any lifecycle call is made.
func (e *Executor) Load(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compiling module: %w", err)
	}
	if err := checkExports(compiled); err != nil {
		compiled.Close(ctx)
		return nil, err
	}

	name := fmt.Sprintf("plugin-%d", e.nextModule.Add(1))
	mod, err := e.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions())
	if err != nil {
		return nil, fmt.Errorf("instantiating module: %w", err)
	}

	// Go reactor modules run their runtime setup in _initialize.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			mod.Close(ctx)
			return nil, fmt.Errorf("calling _initialize: %w", err)
		}
	}

	e.logger.Debug("plugin loaded", "module", name)
	return &Instance{module: mod, logger: e.logger}, nil
}

// Factory returns a PluginFactory instantiating fresh instances of the
// given artifact, for use with NewSession.
func (e *Executor) Factory(wasmBytes []byte) PluginFactory {
	return func(ctx context.Context) (Plugin, error) {
		return e.Load(ctx, wasmBytes)
	}
}
