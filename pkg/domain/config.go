package domain

// RunConfig is the runtime configuration threaded through a turn and handed
// to every node and condition.
type RunConfig struct {
	// ThreadID partitions checkpoints. Required.
	ThreadID string

	// RecursionLimit overrides the graph's limit when positive.
	RecursionLimit int

	// Prompt is the system message that opens a thread. It is applied only
	// when the thread has no messages yet, checked under the thread's lock.
	Prompt string

	// Graph names the compiled graph running the turn. Set by the engine.
	Graph string

	// Hooks are the engine's lifecycle hooks, so nodes can report tool activity.
	Hooks LifecycleHooks
}
