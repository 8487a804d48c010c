package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/fzracing/fz/engine/hostfuncs"
	"github.com/fzracing/fz/internal/abi"
	"github.com/fzracing/fz/wire"
)

// registerHostModule instantiates the engine_host import module. Every
// registry handler becomes a packed ptr/len function; log_message is
// always present and routes guest records into the executor's logger.
func (e *Executor) registerHostModule(ctx context.Context) error {
	builder := e.runtime.NewHostModuleBuilder(HostModule)

	for _, name := range e.registry.Names() {
		localName := name
		builder.NewFunctionBuilder().
			WithFunc(func(ctx context.Context, m api.Module, packed uint64) uint64 {
				ptr, length := abi.UnpackPtrLen(packed)
				payload, ok := m.Memory().Read(ptr, length)
				if !ok {
					return 0
				}
				resp, err := e.registry.Invoke(ctx, localName, payload)
				if err != nil {
					// Raw handlers may still fail with a Go error; the guest
					// gets the structured shape either way.
					e.logger.Warn("host function failed", "function", localName, "error", err)
					resp = hostfuncs.NewInternalError(err.Error()).ToJSON()
				}

				allocate := m.ExportedFunction("allocate")
				results, err := allocate.Call(ctx, uint64(len(resp)))
				if err != nil || len(results) == 0 {
					return 0
				}
				respPtr := uint32(results[0])
				if !m.Memory().Write(respPtr, resp) {
					return 0
				}
				return abi.PackPtrLen(respPtr, uint32(len(resp)))
			}).
			Export(name)
	}

	builder.NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) {
			ptr, length := abi.UnpackPtrLen(packed)
			payload, ok := m.Memory().Read(ptr, length)
			if !ok {
				return
			}
			e.forwardLog(ctx, payload)
		}).
		Export("log_message")

	_, err := builder.Instantiate(ctx)
	return err
}

// forwardLog re-emits a guest log record through the host logger,
// preserving level and attributes where the payload parses.
func (e *Executor) forwardLog(ctx context.Context, payload []byte) {
	var msg wire.LogMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		e.logger.Info("plugin log (raw)", "payload", string(payload))
		return
	}

	attrs := make([]any, 0, 2+2*len(msg.Attrs))
	attrs = append(attrs, "plugin", msg.Context.Plugin)
	for _, a := range msg.Attrs {
		attrs = append(attrs, a.Key, a.Value)
	}
	e.logger.Log(ctx, guestLevel(msg.Level), msg.Message, attrs...)
}

func guestLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
