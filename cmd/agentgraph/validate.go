package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile every agent configuration",
	Long:  `Resolves nodes, conditions, edges and checkpointers of every configuration and reports the first error. MCP servers are not contacted unless --mcp is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		app, err := bootstrap(cmd, false, !withMCP)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Service.Build(cmd.Context()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		for _, name := range app.Service.Configs() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("mcp", false, "Connect to configured MCP servers")
}
