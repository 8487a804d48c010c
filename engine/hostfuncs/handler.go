// Package hostfuncs provides the named host functions a plugin may import:
// an immutable registry of JSON byte handlers with middleware, plus the
// engine's built-in bundles.
package hostfuncs

import (
	"context"
	"encoding/json"
)

// HostFunc is a typed host function: context plus request in, response out.
type HostFunc[Req any, Resp any] func(context.Context, Req) Resp

// ByteHandler is the raw shape a WASM runtime dispatches to: JSON request
// bytes in, JSON response bytes out.
type ByteHandler func(context.Context, []byte) ([]byte, error)

// NewJSONHandler adapts a typed HostFunc into a ByteHandler, handling the
// JSON decode of the request and encode of the response. Malformed guest
// input becomes a structured ErrorResponse rather than a Go error, so the
// guest always receives parseable bytes.
func NewJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewValidationError("decoding request: " + err.Error()).ToJSON(), nil
		}

		resp := fn(ctx, req)

		out, err := json.Marshal(resp)
		if err != nil {
			return NewInternalError("encoding response: " + err.Error()).ToJSON(), nil
		}
		return out, nil
	}
}
