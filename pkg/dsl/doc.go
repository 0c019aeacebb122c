/*
Package dsl provides a fluent builder for constructing agent graphs in Go
instead of YAML.

The result is an ordinary domain.GraphSpec, so it compiles through the same
validation as a configuration file and can be registered with
config.Agents.AddSpec.

Example usage:

	b := dsl.New()
	b.Add("call_model").Entry().Branch("should_continue", map[string]string{
		"tool_node": "tool_node",
		"end":       dsl.End,
	})
	b.Add("tool_node").Go("call_model")
	b.Prompt("You are terse.").Tools("add", "multiply")

	spec := b.Build()
*/
package dsl
