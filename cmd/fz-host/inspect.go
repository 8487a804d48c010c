package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fzracing/fz/engine"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <plugin.wasm>",
		Short: "Print a plugin's manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wasmBytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			exec, err := engine.NewExecutor(ctx)
			if err != nil {
				return err
			}
			defer exec.Close(context.Background())

			plugin, err := exec.Load(ctx, wasmBytes)
			if err != nil {
				return err
			}
			defer plugin.Close(context.Background())

			manifest, err := plugin.Manifest(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(manifest, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	return cmd
}
