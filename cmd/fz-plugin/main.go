// Command fz-plugin is the racing game guest module. Build it with
// GOOS=wasip1 GOARCH=wasm and hand the artifact to fz-host; the host
// drives it through the exported lifecycle functions, so main itself
// never runs there.
package main

import (
	"github.com/fzracing/fz/fz"
	"github.com/fzracing/fz/sdk"
)

func init() {
	sdk.Register(fz.Def())
}

func main() {}
