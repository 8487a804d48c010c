package hostfuncs

import "context"

// HostContext carries the invoked function name and request-scoped values
// through the middleware chain.
type HostContext interface {
	context.Context

	// FunctionName returns the name of the host function being invoked.
	FunctionName() string

	// SetValue stores a request-scoped value, mutating in place rather
	// than allocating a derived context.
	SetValue(key, value any)

	// GetValue retrieves a value stored with SetValue.
	GetValue(key any) (value any, ok bool)
}

type hostContext struct {
	context.Context
	values   map[any]any
	funcName string
}

// NewHostContext wraps ctx for an invocation of the named function.
func NewHostContext(ctx context.Context, funcName string) HostContext {
	return &hostContext{Context: ctx, funcName: funcName, values: make(map[any]any)}
}

func (c *hostContext) FunctionName() string { return c.funcName }

func (c *hostContext) SetValue(key, value any) { c.values[key] = value }

func (c *hostContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// HostContextFrom returns ctx unchanged when it is already a HostContext,
// otherwise wraps it for the named function.
func HostContextFrom(ctx context.Context, funcName string) HostContext {
	if hc, ok := ctx.(HostContext); ok {
		return hc
	}
	return NewHostContext(ctx, funcName)
}
