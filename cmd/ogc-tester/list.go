package main

import (
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newListCmd(g *globalOptions) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available patterns, or deployed processes with --remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote {
				return listRemote(cmd, g)
			}
			return listLocal(cmd, g)
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "list processes deployed on the server instead")
	return cmd
}

func listLocal(cmd *cobra.Command, g *globalOptions) error {
	store, err := g.newStore()
	if err != nil {
		return err
	}
	ids, err := store.List()
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Pattern", "Params", "Workflow cached"})
	for _, id := range ids {
		cached := "no"
		if _, err := os.Stat(filepath.Join(store.WorkflowDir(), id+".cwl")); err == nil {
			cached = "yes"
		}
		tw.AppendRow(table.Row{id, filepath.Join(store.PatternsDir(), id+".json"), cached})
	}
	tw.Render()
	return nil
}

func listRemote(cmd *cobra.Command, g *globalOptions) error {
	client, err := g.newClient()
	if err != nil {
		return err
	}
	processes, err := client.ListProcesses(cmd.Context())
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Process", "Version", "Title"})
	for _, p := range processes {
		tw.AppendRow(table.Row{p.ID, p.Version, p.Title})
	}
	tw.Render()
	return nil
}
