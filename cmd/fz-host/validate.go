package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fzracing/fz/engine"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <plugin.wasm>",
		Short: "Check that a wasm artifact exports the plugin lifecycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wasmBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := engine.Validate(cmd.Context(), wasmBytes); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
	return cmd
}
