package hostfuncs

import (
	"context"
	"log/slog"
)

// Middleware wraps a ByteHandler with cross-cutting behavior.
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware converts handler panics into structured error
// responses instead of crashing the host.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp = NewPanicError(r).ToJSON()
					err = nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs every host function invocation to the given
// slog logger at debug level, and failures at warn.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			name := "unknown"
			if hc, ok := ctx.(HostContext); ok {
				name = hc.FunctionName()
			}
			logger.Debug("host function invoked", "name", name, "request_bytes", len(payload))
			resp, err := next(ctx, payload)
			if err != nil {
				logger.Warn("host function failed", "name", name, "error", err)
			}
			return resp, err
		}
	}
}
