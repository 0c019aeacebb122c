/*
Package agentgraph runs conversational LLM agents described as workflow graphs.

An agent configuration (YAML) names nodes, unconditional and conditional
edges, an entry point, the tools exposed to the model and a checkpointer.
agentgraph resolves those names against a registry of callables, compiles
and validates the graph, and executes one turn per user message. Every
intermediate state is persisted under the conversation's thread ID, so a
thread resumes across requests and process restarts.

# Usage

	agents, err := config.LoadAgentConfigs("./agents", "primary")
	if err != nil {
		log.Fatal(err)
	}
	model := openai.New(gatewayURL, apiKey, "gpt-4o-mini")

	svc, err := agentgraph.New(agents, model)
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close()

	resp, err := svc.Chat(ctx, "primary", "thread-1", "What is my name?")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(resp.Text())

# Packages

  - pkg/graph compiles specifications and streams turns.
  - pkg/registry resolves node, condition and tool names.
  - pkg/checkpoint builds checkpointers (in_memory, redis, file, postgres).
  - pkg/runner runs a turn and extracts the assistant answer.
  - pkg/dsl builds graph specifications in Go instead of YAML.
  - pkg/persistence/middleware encrypts or redacts stored snapshots.
  - pkg/adapters/http serves the chat API.
*/
package agentgraph
