package graph

import "github.com/aretw0/agentgraph/pkg/domain"

// Names used by the prebuilt react loop. pkg/nodes registers callables under them.
const (
	NodeCallModel           = "call_model"
	NodeTools               = "tool_node"
	ConditionShouldContinue = "should_continue"
	OutcomeTools            = "tool_node"
	OutcomeEnd              = "end"
)

// Spec types.
const (
	TypeCustom   = "custom"
	TypePrebuilt = "prebuilt"
)

// PrebuiltReactSpec returns the standard model/tool loop: call_model runs,
// should_continue routes to tool_node while the model requests tools, and
// tool_node always hands back to call_model.
func PrebuiltReactSpec(prompt string) domain.GraphSpec {
	return domain.GraphSpec{
		Type: TypePrebuilt,
		Nodes: []domain.NodeSpec{
			{Name: NodeCallModel},
			{Name: NodeTools},
		},
		Edges: []domain.EdgeSpec{
			{From: NodeTools, To: NodeCallModel},
		},
		ConditionalEdges: []domain.ConditionalEdgeSpec{
			{
				From:      NodeCallModel,
				Condition: ConditionShouldContinue,
				Mapping: map[string]string{
					OutcomeTools: NodeTools,
					OutcomeEnd:   domain.End,
				},
			},
		},
		EntryPoint:   NodeCallModel,
		Prompt:       prompt,
		Checkpointer: domain.CheckpointerSpec{Type: "in_memory"},
	}
}

// Expand fills the topology of a prebuilt spec, keeping its prompt (or
// domain.DefaultPrompt), tools, MCP servers, checkpointer and recursion limit.
// Other specs are returned unchanged.
func Expand(spec domain.GraphSpec) domain.GraphSpec {
	if spec.Type != TypePrebuilt {
		return spec
	}
	prompt := spec.Prompt
	if prompt == "" {
		prompt = domain.DefaultPrompt
	}
	out := PrebuiltReactSpec(prompt)
	out.Tools = spec.Tools
	out.MCPServers = spec.MCPServers
	out.RecursionLimit = spec.RecursionLimit
	if spec.Checkpointer.Type != "" {
		out.Checkpointer = spec.Checkpointer
	}
	return out
}
