package hostfuncs

import (
	"context"
	"encoding/json"

	"github.com/fzracing/fz/wire"
)

// HostFuncBundle is a pre-configured set of related host functions.
type HostFuncBundle interface {
	// Handlers maps handler names to their implementations.
	Handlers() map[string]ByteHandler
}

type staticBundle struct {
	handlers map[string]ByteHandler
}

func (b *staticBundle) Handlers() map[string]ByteHandler { return b.handlers }

// EmitEventRequest is a guest telemetry event: a named payload the host
// may persist or forward. Race results and lap times travel this way.
type EmitEventRequest struct {
	Name    string           `json:"name"`
	Client  *wire.ClientID   `json:"client,omitempty"`
	Data    json.RawMessage  `json:"data,omitempty"`
	Context wire.ContextWire `json:"context"`
}

// EmitEventResponse acknowledges an event.
type EmitEventResponse struct {
	Accepted bool              `json:"accepted"`
	Error    *wire.ErrorDetail `json:"error,omitempty"`
}

// EventSink consumes guest events.
type EventSink func(context.Context, EmitEventRequest) EmitEventResponse

// EventBundle exposes emit_event backed by the given sink.
func EventBundle(sink EventSink) HostFuncBundle {
	return &staticBundle{
		handlers: map[string]ByteHandler{
			"emit_event": NewJSONHandler(func(ctx context.Context, req EmitEventRequest) EmitEventResponse {
				return sink(ctx, req)
			}),
		},
	}
}

// DiscardEvents is an EventSink that accepts and drops everything.
func DiscardEvents(context.Context, EmitEventRequest) EmitEventResponse {
	return EmitEventResponse{Accepted: true}
}
