package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tetratelabs/wazero"
)

// lifecycleExports is the contract every plugin artifact must satisfy.
var lifecycleExports = []string{
	"allocate",
	"deallocate",
	"fz_manifest",
	"fz_init",
	"fz_dispatch",
}

func checkExports(compiled wazero.CompiledModule) error {
	exports := compiled.ExportedFunctions()
	var missing []string
	for _, name := range lifecycleExports {
		if _, ok := exports[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("plugin missing required exports: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Validate compiles wasmBytes and verifies the lifecycle export contract
// without instantiating anything. Useful for pre-flight checks on
// artifacts before a session starts.
func Validate(ctx context.Context, wasmBytes []byte) error {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fmt.Errorf("compiling module: %w", err)
	}
	defer compiled.Close(ctx)

	return checkExports(compiled)
}
