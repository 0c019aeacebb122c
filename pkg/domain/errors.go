package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrThreadNotFound is returned when a thread ID has no checkpoint.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrUnmappedOutcome is returned when a condition returns a label missing from its mapping.
	ErrUnmappedOutcome = errors.New("condition outcome not present in mapping")

	// ErrRecursionLimit is returned when a turn executes more nodes than allowed.
	ErrRecursionLimit = errors.New("recursion limit reached without hitting END")

	// ErrUnknownCheckpointer is returned for an unsupported checkpointer type.
	ErrUnknownCheckpointer = errors.New("invalid checkpointer type")

	// ErrUnknownTool is returned when the model requests a tool that is not registered.
	ErrUnknownTool = errors.New("tool not found")

	// ErrNoMessages is returned when a node needs a message history and the state has none.
	ErrNoMessages = errors.New("state has no messages")

	// ErrInvalidInput classifies user input rejected before a turn starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInputTooLarge and ErrInputNotUTF8 are the reasons carried by an InputError.
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInputNotUTF8  = errors.New("input is not valid UTF-8")
)

// ConfigurationError reports an invalid graph spec, an unresolved node or
// condition name, or an unknown checkpointer. It is fatal at startup.
type ConfigurationError struct {
	Op   string // compile step or factory that failed, e.g. "add_node"
	Name string // offending name, if any
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("configuration error: %s %q: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ResolutionError is returned when a name is not registered at all.
type ResolutionError struct {
	Kind string // "node", "condition" or "tool"
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %q is not registered", e.Kind, e.Name)
}

// BindingError is returned when a name is registered, but not with the requested kind.
type BindingError struct {
	Kind  string // requested kind
	Found string // kind actually registered under the name
	Name  string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%q is registered as a %s, not a %s", e.Name, e.Found, e.Kind)
}

// InputError reports user input rejected before any checkpoint is touched.
// It matches both ErrInvalidInput and its Reason with errors.Is.
type InputError struct {
	Reason error
	Size   int // bytes received
	Limit  int // bytes allowed, when Reason is ErrInputTooLarge
}

func (e *InputError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("invalid input: %v (%d bytes, limit %d)", e.Reason, e.Size, e.Limit)
	}
	return fmt.Sprintf("invalid input: %v", e.Reason)
}

func (e *InputError) Unwrap() []error { return []error{ErrInvalidInput, e.Reason} }

// ExecutionError reports a failed turn: a node or tool failure, a model
// failure, an unmapped outcome, or a checkpoint I/O error.
type ExecutionError struct {
	ThreadID string
	Node     string
	Err      error
}

func (e *ExecutionError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("execution failed for thread %q at node %q: %v", e.ThreadID, e.Node, e.Err)
	}
	return fmt.Sprintf("execution failed for thread %q: %v", e.ThreadID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsExecutionError reports whether err wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var target *ExecutionError
	return errors.As(err, &target)
}
