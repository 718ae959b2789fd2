package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCmd(g *globalOptions) *cobra.Command {
	var processID string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.newClient()
			if err != nil {
				return err
			}
			jobs, err := client.ListJobs(cmd.Context(), processID)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}
			for _, id := range jobs {
				info, err := client.JobStatus(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t(status unavailable: %v)\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, info.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&processID, "process", "", "only list jobs of this process")
	return cmd
}
