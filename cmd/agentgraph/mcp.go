package main

import (
	"strings"

	"github.com/aretw0/agentgraph"
	"github.com/aretw0/agentgraph/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpMathCmd = &cobra.Command{
	Use:   "mcp-math",
	Short: "Serve the math tools over MCP (stdio)",
	Long: `Runs an MCP server exposing add, multiply, subtract and divide on Stdin/Stdout.
Reference it from an agent configuration as:

  mcp_servers:
    - "stdio:agentgraph mcp-math"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.ServeMathStdio(strings.TrimSpace(agentgraph.Version))
	},
}

func init() {
	rootCmd.AddCommand(mcpMathCmd)
}
