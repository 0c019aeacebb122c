package domain

// GraphSpec is the declarative description of a workflow, as read from an
// agent configuration document.
type GraphSpec struct {
	// Type selects how the graph is assembled: "custom" (default) uses the
	// nodes and edges below, "prebuilt" uses the standard react loop.
	Type string `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`

	Nodes            []NodeSpec            `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
	Edges            []EdgeSpec            `json:"edges" yaml:"edges" mapstructure:"edges"`
	ConditionalEdges []ConditionalEdgeSpec `json:"conditional_edges" yaml:"conditional_edges" mapstructure:"conditional_edges"`
	EntryPoint       string                `json:"entry_point" yaml:"entry_point" mapstructure:"entry_point"`

	// Prompt is prepended as a system message on the first turn of a thread.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty" mapstructure:"prompt"`

	// Tools filters which registered tools are exposed to the model.
	// Empty means every registered tool.
	Tools []ToolSpec `json:"tools,omitempty" yaml:"tools,omitempty" mapstructure:"tools"`

	// MCPServers lists remote tool sources ("stdio:<command> [args...]" or an http(s) URL).
	MCPServers []string `json:"mcp_servers,omitempty" yaml:"mcp_servers,omitempty" mapstructure:"mcp_servers"`

	Checkpointer CheckpointerSpec `json:"checkpointer" yaml:"checkpointer" mapstructure:"checkpointer"`

	// RecursionLimit bounds node executions per turn. Zero means DefaultRecursionLimit.
	RecursionLimit int `json:"recursion_limit,omitempty" yaml:"recursion_limit,omitempty" mapstructure:"recursion_limit"`
}

// NodeSpec declares a node. Name must resolve through the node registry.
type NodeSpec struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
}

// EdgeSpec declares an unconditional transition.
type EdgeSpec struct {
	From string `json:"from" yaml:"from" mapstructure:"from"`
	To   string `json:"to" yaml:"to" mapstructure:"to"`
}

// ConditionalEdgeSpec declares an outcome-dependent transition. Condition
// resolves to a selector whose returned label must be a key of Mapping.
type ConditionalEdgeSpec struct {
	From      string            `json:"from" yaml:"from" mapstructure:"from"`
	Condition string            `json:"condition" yaml:"condition" mapstructure:"condition"`
	Mapping   map[string]string `json:"mapping" yaml:"mapping" mapstructure:"mapping"`
}

// ToolSpec names a tool enabled for the agent.
type ToolSpec struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
}

// CheckpointerSpec selects the checkpoint store.
type CheckpointerSpec struct {
	Type   string         `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Kwargs map[string]any `json:"kwargs,omitempty" yaml:"kwargs,omitempty" mapstructure:"kwargs"`
}

// ToolNames returns the configured tool names.
func (g GraphSpec) ToolNames() []string {
	names := make([]string, 0, len(g.Tools))
	for _, t := range g.Tools {
		names = append(names, t.Name)
	}
	return names
}

// Limit returns the effective recursion limit.
func (g GraphSpec) Limit() int {
	if g.RecursionLimit > 0 {
		return g.RecursionLimit
	}
	return DefaultRecursionLimit
}

// IsSentinel reports whether ref is START or END.
func IsSentinel(ref string) bool {
	return ref == Start || ref == End
}
