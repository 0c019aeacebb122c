package domain

// StateDiff represents the changes between two snapshots of a thread.
// It is designed to be serialized to JSON for progress streaming.
type StateDiff struct {
	// ThreadID is always present to identify the target.
	ThreadID string `json:"thread_id"`

	// Next is set when the cursor moved.
	Next *string `json:"next,omitempty"`

	// Status is set when the thread entered or left a turn.
	Status *ExecutionStatus `json:"status,omitempty"`

	// Appended holds the messages added since the previous snapshot.
	Appended []Message `json:"appended,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
// Message history is assumed append-only. Returns nil when nothing changed.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{ThreadID: newState.ThreadID}

	if oldState == nil || oldState.Next != newState.Next {
		next := newState.Next
		diff.Next = &next
	}
	if oldState == nil || oldState.Status != newState.Status {
		status := newState.Status
		diff.Status = &status
	}

	oldLen := 0
	if oldState != nil {
		oldLen = len(oldState.Messages)
	}
	if len(newState.Messages) > oldLen {
		diff.Appended = newState.Messages[oldLen:]
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Next == nil && d.Status == nil && len(d.Appended) == 0
}
