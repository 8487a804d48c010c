// Command fz-host loads a racing game wasm plugin and runs a session:
// one authoritative server world plus a configurable number of client
// worlds, ticked at a fixed rate.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
