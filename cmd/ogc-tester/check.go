package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ogctester/internal/ogc"
)

func newCheckCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the server is reachable with the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			client := ogc.NewClient(cfg)

			if err := client.Ready(cmd.Context()); err != nil {
				return fmt.Errorf("server %s not ready: %w", cfg.NormalizedBaseURL(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "server %s reachable (auth: %s)\n",
				cfg.NormalizedBaseURL(), cfg.Credential().Kind)
			return nil
		},
	}
}
