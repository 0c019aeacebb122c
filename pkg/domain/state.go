package domain

import "time"

// ExecutionStatus tells whether a thread is between turns or inside one.
type ExecutionStatus string

const (
	StatusIdle    ExecutionStatus = "idle"    // Last turn reached END
	StatusRunning ExecutionStatus = "running" // A turn started and has not reached END yet
)

// State represents the checkpointed snapshot of a thread.
type State struct {
	// ThreadID is the partition key of the checkpoint.
	ThreadID string `json:"thread_id"`

	// Messages is the full conversation history, append-only within a turn.
	Messages []Message `json:"messages"`

	// Status indicates whether the last turn finished.
	Status ExecutionStatus `json:"status"`

	// Next is the node that runs after this snapshot. Empty once END is reached.
	// A retried request resumes an unfinished turn from here.
	Next string `json:"next,omitempty"`

	// PendingInput is the user input of the running turn, used to detect retries.
	PendingInput string `json:"pending_input,omitempty"`

	// Step counts node executions in the current turn.
	Step int `json:"step"`

	// UpdatedAt is the time of the last write.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates an empty idle state for a thread.
func NewState(threadID string) *State {
	return &State{
		ThreadID: threadID,
		Messages: []Message{},
		Status:   StatusIdle,
	}
}

// Update is the partial state contributed by a node.
// Message lists are concatenated onto the running state in arrival order.
type Update struct {
	Messages []Message `json:"messages,omitempty"`
}

// IsEmpty reports whether applying the update would change nothing.
func (u Update) IsEmpty() bool {
	return len(u.Messages) == 0
}

// Apply merges an update into the state.
func (s *State) Apply(u Update) {
	for _, m := range u.Messages {
		s.Messages = append(s.Messages, m.Clone())
	}
}

// LastMessage returns the most recent message, if any.
func (s *State) LastMessage() (Message, bool) {
	if s == nil || len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone creates a deep copy of the state safe for independent mutation.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		next.Messages[i] = m.Clone()
	}
	return &next
}
