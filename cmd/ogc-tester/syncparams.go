package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ogctester/internal/notebook"
)

func newSyncParamsCmd(g *globalOptions) *cobra.Command {
	var (
		all             bool
		baseURL         string
		continueOnError bool
		parallel        int
	)

	cmd := &cobra.Command{
		Use:   "sync-params [pattern-ids...]",
		Short: "Extract default parameters from upstream notebooks",
		Long: `Sync-params downloads each pattern's notebook, parses the params
assignment out of its code cells with a strict literal-only parser, and
writes one JSON parameter file per pattern into the patterns directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := g.newStore()
			if err != nil {
				return err
			}
			var ids []string
			if all || len(args) == 0 {
				// Without arguments, refresh the patterns already present.
				ids, err = resolvePatternIDs(store, nil, true)
			} else {
				ids, err = resolvePatternIDs(store, args, false)
			}
			if err != nil {
				return err
			}

			syncer := notebook.NewSyncer(notebook.NewFetcher(baseURL), parallel)
			results, err := syncer.Sync(cmd.Context(), ids, store.PatternsDir(), continueOnError)
			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAILED: %v\n", res.PatternID, res.Err)
					continue
				}
				if res.Path != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", res.PatternID, res.Path)
				}
			}
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d parameter syncs failed", failed, len(ids))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "sync every pattern in the patterns directory")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "notebook repository base URL (default: upstream)")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep syncing remaining patterns after a failure")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "number of concurrent downloads (default 4)")
	return cmd
}
