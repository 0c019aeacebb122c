package domain

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry of the conversation history.
//
// Content is usually a string. Assistant messages produced by some providers
// carry a list of fragments or a mapping instead; see runner.Extract for how
// those are flattened into text.
type Message struct {
	Role       Role       `json:"role"`
	Content    any        `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// UserMessage creates a message authored by the end user.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// SystemMessage creates a system prompt message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// AssistantMessage creates a model reply, optionally requesting tool calls.
func AssistantMessage(content any, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage creates the message answering a single ToolCall.
func ToolResultMessage(toolCallID, toolName, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Name: toolName, Content: content}
}

// HasToolCalls reports whether an assistant message is waiting on tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Text returns the content when it is plain text, and "" otherwise.
func (m Message) Text() string {
	s, _ := m.Content.(string)
	return s
}

// Clone returns a copy of the message that shares no slices with m.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			out.ToolCalls[i] = c.Clone()
		}
	}
	return out
}
