package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/agentgraph"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of agentgraph",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agentgraph version %s\n", strings.TrimSpace(agentgraph.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
