package hostfuncs

import "encoding/json"

// ErrorResponse is a structured error returned to the guest as JSON, so
// plugins get consistent parseable failures instead of traps.
type ErrorResponse struct {
	// Error is a machine-readable identifier, e.g. "NOT_FOUND".
	Error string `json:"error"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Code is a numeric error code in the HTTP style.
	Code int `json:"code"`
}

// ToJSON serializes the response. Returns nil only if marshaling fails,
// which cannot happen for this type.
func (e ErrorResponse) ToJSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}

// NewValidationError reports malformed guest input.
func NewValidationError(message string) ErrorResponse {
	return ErrorResponse{Error: "VALIDATION_ERROR", Message: message, Code: 400}
}

// NewNotFoundError reports an unknown host function name.
func NewNotFoundError(name string) ErrorResponse {
	return ErrorResponse{Error: "NOT_FOUND", Message: "unknown host function: " + name, Code: 404}
}

// NewInternalError reports an unexpected host-side failure.
func NewInternalError(message string) ErrorResponse {
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: message, Code: 500}
}

// NewPanicError reports a recovered panic.
func NewPanicError(v any) ErrorResponse {
	var msg string
	switch p := v.(type) {
	case error:
		msg = p.Error()
	case string:
		msg = p
	default:
		msg = "panic recovered"
	}
	return ErrorResponse{Error: "INTERNAL_ERROR", Message: "panic: " + msg, Code: 500}
}
