package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/agentgraph/internal/presentation/graph"
	"github.com/aretw0/agentgraph/pkg/domain"
	engine "github.com/aretw0/agentgraph/pkg/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [config]",
	Short: "Export an agent graph as a Mermaid diagram",
	Long:  `Compiles an agent configuration and prints a Mermaid flowchart (graph TD). With --thread, the node the thread resumes at is highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd, false, true)
		if err != nil {
			return err
		}
		defer app.Close()

		name := app.Service.PrimaryConfig()
		if len(args) > 0 {
			name = args[0]
		}
		g, err := app.Service.Graph(cmd.Context(), name)
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if thread, _ := cmd.Flags().GetString("thread"); thread != "" {
			state, err := g.State(cmd.Context(), thread)
			switch {
			case errors.Is(err, domain.ErrThreadNotFound):
				return fmt.Errorf("thread %q has no checkpoint", thread)
			case err != nil:
				return err
			}
			overlay = &graph.Overlay{CurrentNode: state.Next}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, graph.Options{ToolNodes: []string{engine.NodeTools}}, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("thread", "", "Highlight where this thread resumes")
}
