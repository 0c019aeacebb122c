package domain

// Reserved node references.
const (
	// Start marks the virtual node preceding the entry point.
	Start = "START"
	// End marks the terminal node. Reaching it finishes the turn.
	End = "END"
)

const (
	// DefaultRecursionLimit bounds the number of node executions in one turn.
	DefaultRecursionLimit = 25

	// DefaultPrompt is used by the prebuilt agent when the config sets none.
	DefaultPrompt = "You are a helpful assistant."
)
