/*
Package graph compiles declarative agent workflows and runs them.

Compile turns a domain.GraphSpec into an immutable Compiled graph: every node
and condition name is resolved through a registry.Registry, every edge is
checked, and the graph is rejected unless END is reachable from every node the
entry point can reach.

A Compiled graph executes one turn per call to Stream or Invoke. Turns on the
same thread are serialised; the state is checkpointed after every node, so a
retried request for an unfinished turn resumes where the last one stopped.

Builder owns the compiled graphs of a process, one per configuration name.
*/
package graph
