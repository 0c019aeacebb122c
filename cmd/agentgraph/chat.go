package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/agentgraph/internal/cli"
	"github.com/aretw0/agentgraph/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with an agent in the terminal",
	Long:  `Runs one turn per input line against an agent configuration. The thread is checkpointed, so reusing --thread resumes a conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(cmd, true, false)
		if err != nil {
			return err
		}
		defer app.Close()

		name, _ := cmd.Flags().GetString("config")
		if name == "" {
			name = app.Service.PrimaryConfig()
		}
		if !app.Service.HasConfig(name) {
			return fmt.Errorf("unknown agent config %q (available: %v)", name, app.Service.Configs())
		}
		thread, _ := cmd.Flags().GetString("thread")
		if thread == "" {
			thread = fmt.Sprintf("cli-%d", os.Getpid())
		}

		interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		render := tui.Plain
		if interactive {
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = 0
			}
			render = tui.NewRenderer(width)
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		err = cli.RunChat(sigCtx, app.Service, cli.ChatOptions{
			Config:      name,
			ThreadID:    thread,
			In:          os.Stdin,
			Out:         os.Stdout,
			Render:      render,
			Interactive: interactive,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("config", "c", "", "Agent configuration (default: primary)")
	chatCmd.Flags().StringP("thread", "t", "", "Thread ID to start or resume")
}
