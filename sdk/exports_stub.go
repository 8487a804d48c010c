//go:build !wasip1

package sdk

// Native builds keep the process logger; the wasm build routes it
// through the host.
func setupLogging(string) {}
