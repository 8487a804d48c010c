package wire

import "time"

// LogMessage is the wire format for a guest log record forwarded to the
// host's log_message import.
type LogMessage struct {
	Timestamp time.Time   `json:"timestamp"`
	Attrs     []LogAttr   `json:"attrs,omitempty"`
	Level     string      `json:"level"`
	Message   string      `json:"message"`
	Context   ContextWire `json:"context"`
}

// LogAttr is a single structured logging attribute flattened for the wire.
type LogAttr struct {
	Key string `json:"key"`
	// Type tags Value's original kind: "string", "int64", "uint64",
	// "bool", "float64", "time", "duration", "error", "json", "any".
	Type  string `json:"type"`
	Value string `json:"value"`
}
