package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDescribeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <process-id>",
		Short: "Show a deployed process description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.newClient()
			if err != nil {
				return err
			}
			desc, err := client.DescribeProcess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(desc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
