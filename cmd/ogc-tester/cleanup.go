package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newCleanupCmd(g *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "cleanup [pattern-ids...]",
		Short: "Release server-side processes and jobs left behind",
		Long: `Cleanup dismisses any jobs still listed for the given patterns and
undeploys their processes. Use it after an aborted run, a --no-cleanup run,
or a crash left resources stranded on the server. Already-gone resources
are not an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.newStore()
			if err != nil {
				return err
			}
			ids, err := resolvePatternIDs(store, args, all)
			if err != nil {
				return err
			}
			client, err := g.newClient()
			if err != nil {
				return err
			}

			released := 0
			for _, id := range ids {
				if err := client.Undeploy(cmd.Context(), id); err != nil {
					slog.Error("Release failed", "processId", id, "error", err)
					continue
				}
				released++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "released %d of %d\n", released, len(ids))
			if released < len(ids) {
				return fmt.Errorf("%d releases failed", len(ids)-released)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "release every pattern in the patterns directory")
	return cmd
}
