package sdk

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/fzracing/fz/wire"
)

// StateFactory builds one side's state: it registers systems on the app
// and may create entities and send messages through io before the first
// tick.
type StateFactory func(app *App, io *EngineIo) error

// AppDef declares a plugin: identity, config prototype, and the state
// factories for each mode. A nil factory means the plugin does nothing on
// that side.
type AppDef struct {
	Name        string
	Version     string
	Description string

	// Config, when non-nil, is a pointer to the config struct. Its JSON
	// schema is published in the manifest and instances decode the host
	// config through App.Config.
	Config any

	NewClient StateFactory
	NewServer StateFactory
}

// SystemFunc runs one system for one tick.
type SystemFunc func(io *EngineIo)

// App is one live plugin instance: mode, config, and the registered
// systems. The host serializes all calls into it.
type App struct {
	def    AppDef
	mode   wire.Mode
	client *wire.ClientID
	config json.RawMessage
	logger *slog.Logger

	systems map[string]SystemFunc
	specs   []wire.SystemSpec
}

// NewApp creates an uninitialized instance of the definition.
func NewApp(def AppDef) *App {
	return &App{
		def:     def,
		logger:  slog.Default(),
		systems: make(map[string]SystemFunc),
	}
}

// Logger returns the instance logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config decodes the host-supplied config into v and validates its
// constraint tags. With no config supplied, v keeps its zero value.
func (a *App) Config(v any) error {
	if len(a.config) == 0 {
		return nil
	}
	if err := json.Unmarshal(a.config, v); err != nil {
		return &wire.ErrorDetail{Type: "config", Message: fmt.Sprintf("decoding config: %v", err)}
	}
	return ValidateConfig(v)
}

// Manifest describes the plugin to the host.
func (a *App) Manifest() wire.Manifest {
	m := wire.Manifest{
		Name:        a.def.Name,
		Version:     a.def.Version,
		Description: a.def.Description,
		SDKVersion:  Version,
	}
	if a.def.Config != nil {
		if schema, err := ConfigSchema(a.def.Config); err == nil {
			m.ConfigSchema = schema
		}
	}
	return m
}

// HandleInit runs the mode's state factory and returns the registered
// schedule plus anything created during construction. Panics surface as
// structured errors, never traps.
func (a *App) HandleInit(req wire.InitRequest) (resp wire.InitResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = wire.InitResponse{Error: panicDetail(r)}
		}
	}()

	a.mode = req.Mode
	a.client = req.Client
	a.config = req.Config

	factory := a.def.NewServer
	if req.Mode == wire.ModeClient {
		factory = a.def.NewClient
	}
	if factory == nil {
		return wire.InitResponse{}
	}

	io := newEngineIo(a.mode, a.client)
	if err := factory(a, io); err != nil {
		return wire.InitResponse{Error: wire.FromError(err)}
	}

	return wire.InitResponse{
		Schedule: wire.Schedule{Systems: a.specs},
		Commands: io.commands,
		Messages: io.outbox,
	}
}

// HandleDispatch runs one registered system. Unknown system names and
// panics come back as structured errors.
func (a *App) HandleDispatch(req wire.DispatchRequest) (resp wire.DispatchResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = wire.DispatchResponse{Error: panicDetail(r)}
		}
	}()

	fn, ok := a.systems[req.System]
	if !ok {
		return wire.DispatchResponse{Error: &wire.ErrorDetail{
			Type:    "internal",
			Message: fmt.Sprintf("unknown system %q", req.System),
		}}
	}

	io := newEngineIo(a.mode, a.client)
	io.tick = req.Tick
	io.inbox = req.Messages
	io.queries = req.Queries
	fn(io)

	return wire.DispatchResponse{
		Commands: io.commands,
		Writes:   io.writes,
		Messages: io.outbox,
	}
}

func panicDetail(r any) *wire.ErrorDetail {
	return &wire.ErrorDetail{
		Type:    "panic",
		Message: fmt.Sprint(r),
		Stack:   debug.Stack(),
	}
}
