package mcp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/agentgraph/pkg/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MathServerName identifies the math server to clients.
const MathServerName = "Math"

// NewMathServer exposes the math tools (add, multiply, subtract, divide) as an MCP server.
func NewMathServer(version string) *server.MCPServer {
	s := server.NewMCPServer(MathServerName, version, server.WithToolCapabilities(false))

	for _, op := range tools.MathOperations() {
		tool := mcp.NewTool(op.Name,
			mcp.WithDescription(op.Description),
			mcp.WithNumber("a", mcp.Required(), mcp.Description("First operand")),
			mcp.WithNumber("b", mcp.Required(), mcp.Description("Second operand")),
		)
		s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			a, err := req.RequireFloat("a")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			b, err := req.RequireFloat("b")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(strconv.FormatFloat(op.Apply(a, b), 'g', -1, 64)), nil
		})
	}
	return s
}

// ServeMathStdio runs the math server on Stdin/Stdout until the input closes.
func ServeMathStdio(version string) error {
	if err := server.ServeStdio(NewMathServer(version)); err != nil {
		return fmt.Errorf("serve math: %w", err)
	}
	return nil
}
