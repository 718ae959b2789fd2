package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ogctester/internal/pattern"
)

func newDownloadCmd(g *globalOptions) *cobra.Command {
	var all bool
	var baseURL string

	cmd := &cobra.Command{
		Use:   "download [pattern-ids...]",
		Short: "Prefetch workflow documents into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.newStore()
			if err != nil {
				return err
			}
			ids, err := resolvePatternIDs(store, args, all)
			if err != nil {
				return err
			}

			fetcher := pattern.NewFetcher(store, baseURL, g.forceDownload)
			for _, id := range ids {
				path, err := fetcher.Fetch(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("download %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "download every pattern in the patterns directory")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "workflow repository base URL (default: upstream)")
	return cmd
}
