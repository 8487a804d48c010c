package hostfuncs

import (
	"context"
	"fmt"
	"sort"
)

// HandlerRegistry is an immutable collection of named host functions. Once
// built it cannot change, so lookups during execution are lock-free.
type HandlerRegistry struct {
	handlers map[string]ByteHandler
	names    []string
}

type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	errs       []error
}

// RegistryOption configures a HandlerRegistry during construction.
type RegistryOption func(*registryBuilder)

// NewRegistry builds a HandlerRegistry. Registering the same name twice is
// an error.
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: make(map[string]ByteHandler)}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	// Middleware wraps in FIFO order: the first registered runs outermost.
	wrapped := make(map[string]ByteHandler, len(b.handlers))
	for name, h := range b.handlers {
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[name] = h
	}

	return &HandlerRegistry{handlers: wrapped, names: names}, nil
}

// Invoke dispatches a host function call by name. Unknown names yield a
// structured NOT_FOUND response rather than an error, so a misbehaving
// guest cannot trap the host.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	h, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	return h(HostContextFrom(ctx, name), payload)
}

// Has reports whether a handler is registered under name.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the sorted handler names.
func (r *HandlerRegistry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (b *registryBuilder) add(name string, h ByteHandler) {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("handler name cannot be empty"))
		return
	}
	if _, exists := b.handlers[name]; exists {
		b.errs = append(b.errs, fmt.Errorf("duplicate handler name %q", name))
		return
	}
	b.handlers[name] = h
}

// WithByteHandler registers a raw ByteHandler under name.
func WithByteHandler(name string, h ByteHandler) RegistryOption {
	return func(b *registryBuilder) { b.add(name, h) }
}

// WithHandler registers a typed host function with automatic JSON handling.
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) { b.add(name, NewJSONHandler(fn)) }
}

// WithMiddleware appends middleware; the first added wraps outermost.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) { b.middleware = append(b.middleware, mw...) }
}

// WithBundle registers every handler from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, h := range bundle.Handlers() {
			b.add(name, h)
		}
	}
}
