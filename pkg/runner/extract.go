package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// Extract returns the final answer of a turn: scanning snapshots from newest
// to oldest, the content of the first last-message that is an assistant
// reply without tool calls. It returns nil when no snapshot qualifies.
//
// Extract never fails. If the content cannot be turned into text, the
// description of the problem is returned as the answer.
func Extract(events []*domain.State) *string {
	for i := len(events) - 1; i >= 0; i-- {
		last, ok := events[i].LastMessage()
		if !ok || last.Role != domain.RoleAssistant || len(last.ToolCalls) > 0 {
			continue
		}
		text := normalize(last.Content)
		return &text
	}
	return nil
}

func normalize(content any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = fmt.Sprint(r)
		}
	}()

	switch c := content.(type) {
	case string:
		return c
	case []any:
		parts, err := flatten(c)
		if err != nil {
			return err.Error()
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(c, " ")
	case map[string]any:
		return joinStrings(c)
	case nil:
		return ""
	default:
		return fmt.Sprint(c)
	}
}

// flatten turns a list of content fragments into text pieces. Fragments are
// strings, nested lists, or mappings whose "text" field holds the text.
func flatten(fragments []any) ([]string, error) {
	var out []string
	for _, f := range fragments {
		switch v := f.(type) {
		case string:
			out = append(out, v)
		case []any:
			nested, err := flatten(v)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case map[string]any:
			if text, ok := v["text"].(string); ok {
				out = append(out, text)
			}
		default:
			return nil, fmt.Errorf("unsupported content fragment of type %T", f)
		}
	}
	return out, nil
}

func joinStrings(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if _, ok := v.(string); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = m[k].(string)
	}
	return strings.Join(parts, " ")
}
