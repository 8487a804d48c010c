package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fzracing/fz/engine/records"
)

func newRecordsCommand() *cobra.Command {
	var (
		dbPath string
		plugin string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show the fastest recorded race times",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := records.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			finishes, err := store.TopTimes(cmd.Context(), plugin, limit)
			if err != nil {
				return err
			}
			if len(finishes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no records yet")
				return nil
			}

			for i, f := range finishes {
				client := "-"
				if f.Client != nil {
					client = fmt.Sprintf("%d", *f.Client)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %8.2fs  %d laps  client %s  %s\n",
					i+1, f.RaceTime, f.Laps, client, f.Recorded.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "records.db", "records database path")
	cmd.Flags().StringVar(&plugin, "plugin", "fz", "plugin name to list")
	cmd.Flags().IntVar(&limit, "limit", 10, "rows to show")

	return cmd
}
