// Package mcp connects agentgraph to Model Context Protocol servers. It loads
// remote tools into a registry and serves the built-in math tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// StdioPrefix marks a server address that is a subprocess command line.
const StdioPrefix = "stdio:"

// ClientName is announced during initialization.
const ClientName = "agentgraph"

// Source is a connected MCP server whose tools can be registered.
type Source struct {
	addr   string
	client *client.Client
	logger *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// Connect dials addr, which is either "stdio:<command> [args...]" or an
// http(s) URL of a streamable HTTP endpoint, and completes the handshake.
func Connect(ctx context.Context, addr, version string, opts ...Option) (*Source, error) {
	c, err := dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("mcp %s: %w", addr, err)
	}
	return NewSource(ctx, addr, c, version, opts...)
}

func dial(ctx context.Context, addr string) (*client.Client, error) {
	switch {
	case strings.HasPrefix(addr, StdioPrefix):
		fields := strings.Fields(strings.TrimPrefix(addr, StdioPrefix))
		if len(fields) == 0 {
			return nil, errors.New("empty stdio command")
		}
		return client.NewStdioMCPClient(fields[0], nil, fields[1:]...)
	case strings.HasPrefix(addr, "http://"), strings.HasPrefix(addr, "https://"):
		c, err := client.NewStreamableHttpClient(addr)
		if err != nil {
			return nil, err
		}
		if err := c.Start(ctx); err != nil {
			_ = c.Close()
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported address, want %q prefix or http(s) URL", StdioPrefix)
	}
}

// NewSource initializes an already started client.
func NewSource(ctx context.Context, addr string, c *client.Client, version string, opts ...Option) (*Source, error) {
	s := &Source{addr: addr, client: c, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: version}
	res, err := c.Initialize(ctx, req)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("mcp %s: initialize: %w", addr, err)
	}
	s.logger.Info("MCP server connected", "addr", addr, "server", res.ServerInfo.Name)
	return s, nil
}

// Tools lists the server tools as registry tools that call back into the server.
func (s *Source) Tools(ctx context.Context) ([]registry.Tool, error) {
	res, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp %s: list tools: %w", s.addr, err)
	}

	out := make([]registry.Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		out = append(out, registry.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  inputSchema(t),
			Invoke:      s.invoker(t.Name),
		})
	}
	return out, nil
}

// Register loads the server tools into reg and returns how many were added.
func (s *Source) Register(ctx context.Context, reg *registry.Tools) (int, error) {
	tools, err := s.Tools(ctx)
	if err != nil {
		return 0, err
	}
	reg.Register(tools...)
	return len(tools), nil
}

// Close terminates the connection.
func (s *Source) Close() error {
	return s.client.Close()
}

func (s *Source) invoker(name string) registry.ToolFunction {
	return func(ctx context.Context, args map[string]any) (any, error) {
		req := mcp.CallToolRequest{}
		req.Params.Name = name
		req.Params.Arguments = args

		res, err := s.client.CallTool(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("mcp %s: call %s: %w", s.addr, name, err)
		}
		text := contentText(res.Content)
		if res.IsError {
			return nil, fmt.Errorf("tool %s: %s", name, text)
		}
		return text, nil
	}
}

func inputSchema(t mcp.Tool) map[string]any {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil
	}
	var decoded struct {
		InputSchema map[string]any `json:"inputSchema"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return decoded.InputSchema
}

func contentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}
