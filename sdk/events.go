package sdk

import (
	"encoding/json"
	"fmt"

	"github.com/fzracing/fz/wire"
)

// eventRequest is the emit_event host call payload.
type eventRequest struct {
	Name    string           `json:"name"`
	Client  *wire.ClientID   `json:"client,omitempty"`
	Data    json.RawMessage  `json:"data,omitempty"`
	Context wire.ContextWire `json:"context"`
}

type eventResponse struct {
	Accepted bool              `json:"accepted"`
	Error    *wire.ErrorDetail `json:"error,omitempty"`
}

// EmitEvent forwards a named telemetry payload to the host, which may
// persist or drop it. Events are fire-and-forget from the game's point
// of view; a rejection only surfaces as an error to the caller.
func (a *App) EmitEvent(name string, client *wire.ClientID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", name, err)
	}

	raw, err := json.Marshal(eventRequest{
		Name:    name,
		Client:  client,
		Data:    data,
		Context: wire.ContextWire{Plugin: a.def.Name},
	})
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", name, err)
	}

	out, err := emitEvent(raw)
	if err != nil {
		return err
	}

	var resp eventResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		// Registry-level failures arrive in the host's error shape, where
		// "error" is a string identifier rather than a detail object.
		var hostErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if jerr := json.Unmarshal(out, &hostErr); jerr == nil && hostErr.Error != "" {
			return fmt.Errorf("event %s: %s: %s", name, hostErr.Error, hostErr.Message)
		}
		return fmt.Errorf("decoding event response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if !resp.Accepted {
		return fmt.Errorf("event %s rejected", name)
	}
	return nil
}
