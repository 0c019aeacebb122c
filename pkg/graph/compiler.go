package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/registry"
	"github.com/aretw0/agentgraph/pkg/session"
)

// Compile steps, as reported in ConfigurationError.Op.
const (
	OpAddNode            = "add_node"
	OpAddEdge            = "add_edge"
	OpAddConditionalEdge = "add_conditional_edge"
	OpSetEntryPoint      = "set_entry_point"
	OpValidate           = "validate"
)

// Compile builds an executable graph from spec. Each step either succeeds or
// aborts compilation with a *domain.ConfigurationError; no partial graph is
// ever returned. A nil store defaults to an in-memory checkpointer.
func Compile(spec domain.GraphSpec, reg *registry.Registry, store ports.Checkpointer, opts ...Option) (*Compiled, error) {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if o.name != "" {
		logger = logger.With("graph", o.name)
	}

	c := &Compiled{
		name:   o.name,
		spec:   spec,
		nodes:  make(map[string]registry.NodeFunc),
		edges:  make(map[string]string),
		branch: make(map[string]branch),
		limit:  spec.Limit(),
		hooks:  o.hooks,
		logger: logger,
	}

	if err := c.addNodes(spec.Nodes, reg); err != nil {
		return nil, failed(logger, err)
	}
	logger.Debug("Graph compile step", "op", OpAddNode, "nodes", c.order)

	startTarget, err := c.addEdges(spec.Edges)
	if err != nil {
		return nil, failed(logger, err)
	}
	logger.Debug("Graph compile step", "op", OpAddEdge, "edges", len(spec.Edges))

	if err := c.addConditionalEdges(spec.ConditionalEdges, reg); err != nil {
		return nil, failed(logger, err)
	}
	logger.Debug("Graph compile step", "op", OpAddConditionalEdge, "conditional_edges", len(spec.ConditionalEdges))

	if err := c.setEntryPoint(spec.EntryPoint, startTarget); err != nil {
		return nil, failed(logger, err)
	}
	logger.Debug("Graph compile step", "op", OpSetEntryPoint, "entry_point", c.entry)

	if err := c.validate(); err != nil {
		return nil, failed(logger, err)
	}

	if store == nil {
		logger.Warn("No checkpointer attached, using in-memory store")
		store = memory.NewStore()
	}
	c.store = store

	var sessOpts []session.Option
	sessOpts = append(sessOpts, session.WithLogger(logger))
	if o.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(o.locker), session.WithLockTTL(o.lockTTL))
	}
	c.sessions = session.NewManager(store, sessOpts...)

	logger.Info("Graph compiled", "entry_point", c.entry, "nodes", len(c.order), "recursion_limit", c.limit)
	return c, nil
}

func failed(logger *slog.Logger, err error) error {
	logger.Error("Graph compilation failed", "err", err)
	return err
}

func configErr(op, name string, err error) error {
	return &domain.ConfigurationError{Op: op, Name: name, Err: err}
}

func (c *Compiled) addNodes(specs []domain.NodeSpec, reg *registry.Registry) error {
	if len(specs) == 0 {
		return configErr(OpAddNode, "", errors.New("graph declares no nodes"))
	}
	for _, n := range specs {
		switch {
		case n.Name == "":
			return configErr(OpAddNode, "", errors.New("node name is empty"))
		case domain.IsSentinel(n.Name):
			return configErr(OpAddNode, n.Name, errors.New("reserved name cannot be declared as a node"))
		case c.HasNode(n.Name):
			return configErr(OpAddNode, n.Name, errors.New("duplicate node"))
		}

		fn, err := reg.ResolveNode(n.Name)
		if err != nil {
			return configErr(OpAddNode, n.Name, err)
		}
		c.nodes[n.Name] = fn
		c.order = append(c.order, n.Name)
	}
	return nil
}

// addEdges returns the target of a START edge, if one is declared.
func (c *Compiled) addEdges(specs []domain.EdgeSpec) (string, error) {
	var startTarget string
	for _, e := range specs {
		name := e.From + "->" + e.To
		switch {
		case e.From == domain.End:
			return "", configErr(OpAddEdge, name, errors.New("END cannot have outgoing edges"))
		case e.To == domain.Start:
			return "", configErr(OpAddEdge, name, errors.New("START cannot be an edge target"))
		case e.From == domain.Start:
			if e.To == domain.End {
				return "", configErr(OpAddEdge, name, errors.New("START must lead to a node"))
			}
			if !c.HasNode(e.To) {
				return "", configErr(OpAddEdge, name, fmt.Errorf("unknown node %q", e.To))
			}
			if startTarget != "" && startTarget != e.To {
				return "", configErr(OpAddEdge, name, fmt.Errorf("START already leads to %q", startTarget))
			}
			startTarget = e.To
			continue
		}

		if !c.HasNode(e.From) {
			return "", configErr(OpAddEdge, name, fmt.Errorf("unknown node %q", e.From))
		}
		if e.To != domain.End && !c.HasNode(e.To) {
			return "", configErr(OpAddEdge, name, fmt.Errorf("unknown node %q", e.To))
		}
		if prev, ok := c.edges[e.From]; ok {
			return "", configErr(OpAddEdge, name, fmt.Errorf("node %q already leads to %q", e.From, prev))
		}
		c.edges[e.From] = e.To
	}
	return startTarget, nil
}

func (c *Compiled) addConditionalEdges(specs []domain.ConditionalEdgeSpec, reg *registry.Registry) error {
	for _, ce := range specs {
		switch {
		case domain.IsSentinel(ce.From):
			return configErr(OpAddConditionalEdge, ce.From, errors.New("conditional edges must start at a node"))
		case !c.HasNode(ce.From):
			return configErr(OpAddConditionalEdge, ce.From, fmt.Errorf("unknown node %q", ce.From))
		case len(ce.Mapping) == 0:
			return configErr(OpAddConditionalEdge, ce.From, errors.New("mapping is empty"))
		}
		if _, ok := c.edges[ce.From]; ok {
			return configErr(OpAddConditionalEdge, ce.From, errors.New("node already has an unconditional edge"))
		}
		if _, ok := c.branch[ce.From]; ok {
			return configErr(OpAddConditionalEdge, ce.From, errors.New("node already has a conditional edge"))
		}

		fn, err := reg.ResolveCondition(ce.Condition)
		if err != nil {
			return configErr(OpAddConditionalEdge, ce.Condition, err)
		}

		mapping := make(map[string]string, len(ce.Mapping))
		for label, target := range ce.Mapping {
			if target != domain.End && !c.HasNode(target) {
				return configErr(OpAddConditionalEdge, ce.From, fmt.Errorf("outcome %q maps to unknown node %q", label, target))
			}
			mapping[label] = target
		}
		c.branch[ce.From] = branch{condition: ce.Condition, fn: fn, mapping: mapping}
	}
	return nil
}

func (c *Compiled) setEntryPoint(entry, startTarget string) error {
	switch {
	case entry == "" && startTarget == "":
		return configErr(OpSetEntryPoint, "", errors.New("entry point is required"))
	case entry == "":
		entry = startTarget
	case startTarget != "" && entry != startTarget:
		return configErr(OpSetEntryPoint, entry, fmt.Errorf("conflicts with edge START->%s", startTarget))
	}
	if !c.HasNode(entry) {
		return configErr(OpSetEntryPoint, entry, fmt.Errorf("unknown node %q", entry))
	}
	c.entry = entry
	return nil
}

func (c *Compiled) successors(node string) []string {
	if to, ok := c.edges[node]; ok {
		return []string{to}
	}
	b := c.branch[node]
	out := make([]string, 0, len(b.mapping))
	for _, to := range b.mapping {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// validate rejects graphs where a node reachable from the entry point has no
// way out or cannot reach END. Cycles are fine as long as one branch escapes.
func (c *Compiled) validate() error {
	reachable := map[string]bool{c.entry: true}
	queue := []string{c.entry}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		succ := c.successors(node)
		if len(succ) == 0 {
			return configErr(OpValidate, node, errors.New("node has no outgoing edge"))
		}
		for _, next := range succ {
			if next != domain.End && !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	// Walk backwards from END.
	predecessors := make(map[string][]string)
	for _, node := range c.order {
		for _, next := range c.successors(node) {
			predecessors[next] = append(predecessors[next], node)
		}
	}
	escapes := make(map[string]bool)
	queue = slices.Clone(predecessors[domain.End])
	for _, n := range queue {
		escapes[n] = true
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, prev := range predecessors[node] {
			if !escapes[prev] {
				escapes[prev] = true
				queue = append(queue, prev)
			}
		}
	}

	var trapped, orphans []string
	for _, node := range c.order {
		if !reachable[node] {
			orphans = append(orphans, node)
			continue
		}
		if !escapes[node] {
			trapped = append(trapped, node)
		}
	}
	if len(trapped) > 0 {
		return configErr(OpValidate, trapped[0], fmt.Errorf("END is unreachable from %s", strings.Join(trapped, ", ")))
	}
	if len(orphans) > 0 {
		c.logger.Warn("Nodes unreachable from entry point", "nodes", orphans)
	}
	return nil
}
