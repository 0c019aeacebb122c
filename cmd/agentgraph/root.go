package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/agentgraph/internal/cli"
	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentgraph",
	Short: "agentgraph runs LLM agents described as workflow graphs",
	Long: `agentgraph compiles agent configurations (YAML graphs of model and tool nodes)
and serves them over HTTP, in a terminal chat, or inspects them offline.

Settings come from the environment (LOG_LEVEL, LITELLM_GATEWAY_URL, TFY_GATEWAY_URL,
MODEL_NAME, REDIS_URL, AGENT_CONFIGS, PRIMARY_CONFIG, PORT, MQTT_URL, MQTT_TOPIC);
flags override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("configs", "", "Directory containing agent configurations (AGENT_CONFIGS)")
	rootCmd.PersistentFlags().String("primary", "", "Configuration served by default (PRIMARY_CONFIG)")
	rootCmd.PersistentFlags().String("log-level", "", "DEBUG, INFO, WARN or ERROR (LOG_LEVEL)")
}

// loadSettings reads the environment and applies flag overrides.
func loadSettings(cmd *cobra.Command) (config.Settings, *slog.Logger, error) {
	s, err := config.Load(nil)
	if err != nil {
		return s, nil, err
	}
	if v, _ := cmd.Flags().GetString("configs"); v != "" {
		s.AgentConfigs = v
	}
	if v, _ := cmd.Flags().GetString("primary"); v != "" {
		s.PrimaryConfig = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		s.LogLevel = v
	}
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return s, nil, err
	}
	return s, logging.New(level), nil
}

func bootstrap(cmd *cobra.Command, online, skipMCP bool) (*cli.App, error) {
	s, logger, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return cli.Bootstrap(cli.Options{Settings: s, Logger: logger, Online: online, SkipMCP: skipMCP})
}
