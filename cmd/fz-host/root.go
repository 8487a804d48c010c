package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "fz-host",
		Short: "Host engine for the fz racing game plugin",
		Long: `fz-host runs wasm game plugins in a sandboxed session: it owns the
entity worlds, schedules plugin systems each tick, routes messages
between the server and client instances, and persists race records.`,
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRecordsCommand())

	return rootCmd
}
