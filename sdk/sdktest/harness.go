// Package sdktest runs plugins natively against a real session, without
// compiling to wasm. State factories and systems execute in-process, so
// ordinary debuggers and coverage work.
package sdktest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fzracing/fz/engine"
	"github.com/fzracing/fz/sdk"
	"github.com/fzracing/fz/wire"
)

// nativePlugin adapts an in-process App to the engine's plugin surface.
type nativePlugin struct {
	app *sdk.App
}

func (p *nativePlugin) Manifest(context.Context) (wire.Manifest, error) {
	return p.app.Manifest(), nil
}

func (p *nativePlugin) Init(_ context.Context, req wire.InitRequest) (wire.InitResponse, error) {
	return p.app.HandleInit(req), nil
}

func (p *nativePlugin) Dispatch(_ context.Context, req wire.DispatchRequest) (wire.DispatchResponse, error) {
	return p.app.HandleDispatch(req), nil
}

func (p *nativePlugin) Close(context.Context) error { return nil }

// Factory returns a PluginFactory that instantiates the definition
// natively. Each call builds an independent App.
func Factory(def sdk.AppDef) engine.PluginFactory {
	return func(context.Context) (engine.Plugin, error) {
		return &nativePlugin{app: sdk.NewApp(def)}, nil
	}
}

// Harness is a session running a native plugin.
type Harness struct {
	t       testing.TB
	Session *engine.Session
}

// Option configures the harness.
type Option func(*options)

type options struct {
	config     any
	maxClients int
}

// WithConfig passes a plugin config, marshaled to JSON, to every
// instance's init call.
func WithConfig(config any) Option {
	return func(o *options) { o.config = config }
}

// WithMaxClients bounds the session's client count.
func WithMaxClients(n int) Option {
	return func(o *options) { o.maxClients = n }
}

// New starts a session for the definition and registers cleanup.
func New(t testing.TB, def sdk.AppDef, opts ...Option) *Harness {
	t.Helper()

	o := options{maxClients: 8}
	for _, opt := range opts {
		opt(&o)
	}

	sessionOpts := []engine.SessionOption{engine.WithMaxClients(o.maxClients)}
	if o.config != nil {
		raw, err := json.Marshal(o.config)
		if err != nil {
			t.Fatalf("marshaling plugin config: %v", err)
		}
		sessionOpts = append(sessionOpts, engine.WithPluginConfig(raw))
	}

	session, err := engine.NewSession(context.Background(), Factory(def), sessionOpts...)
	if err != nil {
		t.Fatalf("starting session: %v", err)
	}
	t.Cleanup(func() { session.Close(context.Background()) })

	return &Harness{t: t, Session: session}
}

// Join adds a client, failing the test on error.
func (h *Harness) Join() wire.ClientID {
	h.t.Helper()
	id, err := h.Session.AddClient(context.Background())
	if err != nil {
		h.t.Fatalf("adding client: %v", err)
	}
	return id
}

// Deliver queues a host-side message, input events for example, into a
// client's next-tick inbox.
func (h *Harness) Deliver(client wire.ClientID, m sdk.Message) {
	h.t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		h.t.Fatalf("marshaling %s: %v", m.MessageID(), err)
	}
	err = h.Session.Deliver(client, wire.MessageData{
		ID:          m.MessageID(),
		Destination: wire.Destination{Kind: wire.DestLocal},
		Data:        data,
	})
	if err != nil {
		h.t.Fatalf("delivering %s: %v", m.MessageID(), err)
	}
}

// Tick advances the session one tick of dt seconds.
func (h *Harness) Tick(dt float32) {
	h.t.Helper()
	if err := h.Session.Tick(context.Background(), dt); err != nil {
		h.t.Fatalf("tick %d: %v", h.Session.TickCount(), err)
	}
}

// TickN advances n ticks of dt seconds each.
func (h *Harness) TickN(n int, dt float32) {
	h.t.Helper()
	for range n {
		h.Tick(dt)
	}
}

// ServerComponent decodes a component from the server world into v.
func (h *Harness) ServerComponent(entity wire.EntityID, component string, v any) bool {
	h.t.Helper()
	data, ok := h.Session.ServerWorld().Component(entity, component)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		h.t.Fatalf("decoding %s on %s: %v", component, entity, err)
	}
	return true
}
