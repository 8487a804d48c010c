package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fzracing/fz/wire"
)

// serialize flattens a record plus the handler's accumulated attributes
// into the wire format.
func (h *Handler) serialize(record slog.Record) wire.LogMessage {
	msg := wire.LogMessage{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Context:   wire.ContextWire{Plugin: h.opts.plugin},
	}
	for _, attr := range h.attrs {
		msg.Attrs = append(msg.Attrs, h.toLogAttr(attr))
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, h.toLogAttr(attr))
		return true
	})
	return msg
}

func (h *Handler) toLogAttr(attr slog.Attr) wire.LogAttr {
	out := wire.LogAttr{Key: attr.Key}
	if h.group != "" {
		out.Key = h.group + "." + attr.Key
	}
	attr.Value = attr.Value.Resolve()

	switch attr.Value.Kind() {
	case slog.KindString:
		out.Type = "string"
		out.Value = attr.Value.String()
	case slog.KindInt64:
		out.Type = "int64"
		out.Value = fmt.Sprintf("%d", attr.Value.Int64())
	case slog.KindUint64:
		out.Type = "uint64"
		out.Value = fmt.Sprintf("%d", attr.Value.Uint64())
	case slog.KindBool:
		out.Type = "bool"
		out.Value = fmt.Sprintf("%t", attr.Value.Bool())
	case slog.KindFloat64:
		out.Type = "float64"
		out.Value = fmt.Sprintf("%g", attr.Value.Float64())
	case slog.KindTime:
		out.Type = "time"
		out.Value = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		out.Type = "duration"
		out.Value = attr.Value.Duration().String()
	case slog.KindAny:
		v := attr.Value.Any()
		switch {
		case v == nil:
			out.Type = "any"
			out.Value = "<nil>"
		default:
			if err, isErr := v.(error); isErr {
				out.Type = "error"
				out.Value = err.Error()
			} else if data, marshalErr := json.Marshal(v); marshalErr == nil {
				out.Type = "json"
				out.Value = string(data)
			} else {
				out.Type = "any"
				out.Value = fmt.Sprintf("%v", v)
			}
		}
	default:
		out.Type = "any"
		out.Value = fmt.Sprintf("%v", attr.Value.Any())
	}
	return out
}
