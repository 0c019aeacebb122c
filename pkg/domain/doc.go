/*
Package domain contains the core domain models of the agentgraph engine.

It defines the conversation messages exchanged with the language model, the
per-thread execution state persisted by checkpointers, the declarative graph
specification read from agent configuration documents, and the error taxonomy
shared by every layer. The package is free of I/O.

# Key Entities

  - Message: a user, system, assistant or tool-result message.
  - State: the checkpointed snapshot of a thread (messages plus resume cursor).
  - Update: the partial update a node contributes to the running state.
  - GraphSpec: nodes, edges, conditional edges and entry point of a workflow.
*/
package domain
