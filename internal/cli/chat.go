package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/agentgraph/internal/presentation/tui"
	"github.com/aretw0/agentgraph/pkg/runner"
)

// Chatter runs one turn.
type Chatter interface {
	Chat(ctx context.Context, configName, threadID, userInput string) (runner.Response, error)
}

// ChatOptions configures RunChat.
type ChatOptions struct {
	Config   string
	ThreadID string
	In       io.Reader
	Out      io.Writer
	Render   tui.Renderer
	// Interactive prints the banner and the input prompt.
	Interactive bool
}

// exitCommands end the REPL.
var exitCommands = map[string]bool{"/exit": true, "/quit": true, "exit": true, "quit": true}

// RunChat reads one user message per line and prints the assistant answer
// until EOF, an exit command or ctx cancellation. Turn failures are printed
// and the loop continues.
func RunChat(ctx context.Context, c Chatter, opts ChatOptions) error {
	render := opts.Render
	if render == nil {
		render = tui.Plain
	}
	if opts.Interactive {
		tui.PrintBanner(opts.Out)
		fmt.Fprintln(opts.Out, tui.Faint(opts.Out, fmt.Sprintf("config %s, thread %s. Type /exit to quit.", opts.Config, opts.ThreadID)))
	}

	scanner := bufio.NewScanner(opts.In)
	scanner.Buffer(make([]byte, 0, 64*1024), runner.DefaultMaxInputSize+1)
	for {
		if opts.Interactive {
			fmt.Fprint(opts.Out, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[line] {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := c.Chat(ctx, opts.Config, opts.ThreadID, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(opts.Out, "error: %v\n", err)
			continue
		}
		if resp.Response == nil {
			fmt.Fprintln(opts.Out, "(no response)")
			continue
		}
		out, err := render(*resp.Response)
		if err != nil {
			out = *resp.Response
		}
		fmt.Fprintln(opts.Out, strings.TrimRight(out, "\n"))
	}
}
