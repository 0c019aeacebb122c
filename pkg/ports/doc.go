/*
Package ports defines the driven ports (interfaces) of the agentgraph engine.

These interfaces decouple the graph executor from external implementations,
allowing the same compiled graph to run against various checkpoint stores,
language model providers and lock backends.

# Key Interfaces

  - Checkpointer: persists the execution state of a thread, keyed by thread ID.
  - ChatModel: sends the accumulated message history to a language model.
  - DistributedLocker: serializes turns on the same thread across replicas.
*/
package ports
