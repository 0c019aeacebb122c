package openai

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/agentgraph/pkg/domain"
	goopenai "github.com/sashabaranov/go-openai"
)

func newRequest(model string, messages []domain.Message, tools []domain.ToolDefinition) (goopenai.ChatCompletionRequest, error) {
	req := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		out, err := toChatMessage(m)
		if err != nil {
			return goopenai.ChatCompletionRequest{}, err
		}
		req.Messages = append(req.Messages, out)
	}
	for _, d := range tools {
		req.Tools = append(req.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return req, nil
}

func toChatMessage(m domain.Message) (goopenai.ChatCompletionMessage, error) {
	out := goopenai.ChatCompletionMessage{
		Role:       string(m.Role),
		ToolCallID: m.ToolCallID,
	}
	if m.Role == domain.RoleTool {
		out.Name = m.Name
	}

	switch content := m.Content.(type) {
	case nil:
	case string:
		out.Content = content
	case []any:
		// Fragment lists replayed from earlier replies go back as text parts.
		for _, part := range content {
			text, err := fragmentText(part)
			if err != nil {
				return goopenai.ChatCompletionMessage{}, fmt.Errorf("encode %s message content: %w", m.Role, err)
			}
			out.MultiContent = append(out.MultiContent, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: text,
			})
		}
	default:
		encoded, err := json.Marshal(content)
		if err != nil {
			return goopenai.ChatCompletionMessage{}, fmt.Errorf("encode %s message content: %w", m.Role, err)
		}
		out.Content = string(encoded)
	}

	for _, c := range m.ToolCalls {
		args := c.Args
		if args == nil {
			args = map[string]any{}
		}
		encoded, err := json.Marshal(args)
		if err != nil {
			return goopenai.ChatCompletionMessage{}, fmt.Errorf("encode arguments of tool call %s: %w", c.Name, err)
		}
		out.ToolCalls = append(out.ToolCalls, goopenai.ToolCall{
			ID:       c.ID,
			Type:     goopenai.ToolTypeFunction,
			Function: goopenai.FunctionCall{Name: c.Name, Arguments: string(encoded)},
		})
	}
	return out, nil
}

func fragmentText(part any) (string, error) {
	switch p := part.(type) {
	case string:
		return p, nil
	case map[string]any:
		if text, ok := p["text"].(string); ok {
			return text, nil
		}
	}
	encoded, err := json.Marshal(part)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func fromChoice(m goopenai.ChatCompletionMessage) (domain.Message, error) {
	out := domain.AssistantMessage(m.Content)
	for _, c := range m.ToolCalls {
		args := map[string]any{}
		if c.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(c.Function.Arguments), &args); err != nil {
				return domain.Message{}, fmt.Errorf("decode arguments of tool call %s: %w", c.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, domain.ToolCall{ID: c.ID, Name: c.Function.Name, Args: args})
	}
	return out, nil
}
