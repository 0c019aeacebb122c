package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/agentgraph/pkg/domain"
	engine "github.com/aretw0/agentgraph/pkg/graph"
)

// Overlay contains dynamic state data to visualize on the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// Options tweak node shapes.
type Options struct {
	// ToolNodes are drawn as subroutines.
	ToolNodes []string
}

// GenerateMermaid produces a Mermaid flowchart for a compiled graph.
// It applies semantic styling:
// - START and END: ((Circle))
// - Tool runners: [[Subroutine]]
// - Default: [Rectangle]
// Conditional transitions are dotted and labelled with their outcome.
func GenerateMermaid(g *engine.Compiled, opts Options, overlay *Overlay) string {
	return Render(g.Nodes(), g.Edges(), opts, overlay)
}

// Render is GenerateMermaid over explicit nodes and edges.
func Render(nodes []string, edges []engine.Edge, opts Options, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	tools := make(map[string]bool, len(opts.ToolNodes))
	for _, n := range opts.ToolNodes {
		tools[n] = true
	}

	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", sanitizeMermaidID(domain.Start), domain.Start)
	for _, node := range nodes {
		opener, closer := "[", "]"
		if tools[node] {
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node), opener, node, closer)
	}
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", sanitizeMermaidID(domain.End), domain.End)

	for _, e := range edges {
		arrow := "-->"
		if e.IsConditional() {
			label := strings.ReplaceAll(e.Label, "\"", "'")
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// START and END are mermaid keywords in some renderers, so they get a suffix.
func sanitizeMermaidID(id string) string {
	if domain.IsSentinel(id) {
		return id + "_"
	}
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
