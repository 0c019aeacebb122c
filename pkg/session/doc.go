/*
Package session serialises turns per conversation thread.

A Manager wraps a Checkpointer with reference-counted per-thread mutexes and,
optionally, a distributed lock so that replicas sharing a backend never run
two turns on the same thread at once.
*/
package session
