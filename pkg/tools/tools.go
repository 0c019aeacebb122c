// Package tools provides the built-in tools shipped with agentgraph.
package tools

import (
	"context"
	"fmt"

	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

// Username returns the get_username tool.
func Username() registry.Tool {
	return registry.Tool{
		Name:        "get_username",
		Description: "Get the username of the current user.",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		Invoke: func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"response": "John Doe"}, nil
		},
	}
}

// Operands are the arguments of the binary math tools.
type Operands struct {
	A float64 `mapstructure:"a"`
	B float64 `mapstructure:"b"`
}

// DecodeOperands reads a and b from tool arguments, accepting numbers or numeric strings.
func DecodeOperands(args map[string]any) (Operands, error) {
	var ops Operands
	for _, key := range []string{"a", "b"} {
		if _, ok := args[key]; !ok {
			return ops, fmt.Errorf("missing argument %q", key)
		}
	}
	if err := mapstructure.WeakDecode(args, &ops); err != nil {
		return ops, fmt.Errorf("invalid arguments: %w", err)
	}
	return ops, nil
}

// Divide returns a/b, or 0 when b is zero.
func Divide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// MathOperation describes one binary operation.
type MathOperation struct {
	Name        string
	Description string
	Apply       func(a, b float64) float64
}

// MathOperations lists add, multiply, subtract and divide.
func MathOperations() []MathOperation {
	return []MathOperation{
		{Name: "add", Description: "Add two numbers", Apply: func(a, b float64) float64 { return a + b }},
		{Name: "multiply", Description: "Multiply two numbers", Apply: func(a, b float64) float64 { return a * b }},
		{Name: "subtract", Description: "Subtract b from a", Apply: func(a, b float64) float64 { return a - b }},
		{Name: "divide", Description: "Divide a by b (returns 0 when b is 0)", Apply: Divide},
	}
}

var operandSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"a": map[string]any{"type": "number"},
		"b": map[string]any{"type": "number"},
	},
	"required": []any{"a", "b"},
}

// Math returns the math operations as tools.
func Math() []registry.Tool {
	ops := MathOperations()
	out := make([]registry.Tool, 0, len(ops))
	for _, op := range ops {
		out = append(out, registry.Tool{
			Name:        op.Name,
			Description: op.Description,
			Parameters:  operandSchema,
			Invoke: func(ctx context.Context, args map[string]any) (any, error) {
				in, err := DecodeOperands(args)
				if err != nil {
					return nil, err
				}
				return op.Apply(in.A, in.B), nil
			},
		})
	}
	return out
}

// Builtins returns every built-in tool.
func Builtins() []registry.Tool {
	return append([]registry.Tool{Username()}, Math()...)
}
