package workflow

import (
	"fmt"
	"sync"
)

// Edge is a directed link between two named nodes. A feedback edge does not
// constrain scheduling within a round; it carries the From node's output into
// the To node's input of the following round.
type Edge struct {
	From     string
	To       string
	Feedback bool
}

// Graph is the mutable builder for a workflow's static structure. All
// operations are concurrency-safe, though a graph is typically assembled
// from a single goroutine before execution begins.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	// order preserves AddNode call order for deterministic scheduling.
	order []string
	// edges preserves AddEdge call order; the propagator's merge policy
	// depends on it (later edge wins on key overlap).
	edges []*Edge

	// validated flips on a successful Validate and is cleared by any
	// mutation, forcing revalidation before the next run.
	validated bool
}

// NewGraph returns an initialized, empty Graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode adds a node with the given type, unique name, and static config.
// The config is validated against the type's accepted option set.
func (g *Graph) AddNode(typ NodeType, name string, config map[string]any) error {
	if name == "" {
		return fmt.Errorf("node name must not be empty: %w", ErrValidation)
	}
	if !typ.Valid() {
		return fmt.Errorf("unknown node type '%s' for node '%s': %w", typ, name, ErrValidation)
	}
	if err := validateOptions(name, typ, config); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[name]; ok {
		return &DuplicateNodeError{Name: name}
	}
	if config == nil {
		config = map[string]any{}
	}
	g.nodes[name] = &Node{Name: name, Type: typ, Config: config, index: len(g.order)}
	g.order = append(g.order, name)
	g.validated = false
	return nil
}

// AddEdge creates a directed intra-round edge from -> to. Both endpoints
// must already exist and self-loops are rejected.
func (g *Graph) AddEdge(from, to string) error {
	if from == to {
		return &SelfLoopError{Node: from}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[from]; !ok {
		return &DanglingEdgeError{From: from, To: to, Missing: from}
	}
	if _, ok := g.nodes[to]; !ok {
		return &DanglingEdgeError{From: from, To: to, Missing: to}
	}
	g.edges = append(g.edges, &Edge{From: from, To: to})
	g.validated = false
	return nil
}

// MarkFeedback tags an existing edge as a round-boundary link, excluding it
// from the acyclicity check and from intra-round scheduling.
func (g *Graph) MarkFeedback(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range g.edges {
		if e.From == from && e.To == to {
			e.Feedback = true
			g.validated = false
			return nil
		}
	}
	return &UnknownEdgeError{From: from, To: to}
}

// Node returns the named node, or nil if it does not exist.
func (g *Graph) Node(name string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[name]
}

// Nodes returns all nodes in AddNode insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Edges returns every edge, intra-round and feedback, in AddEdge order.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// FeedbackEdges returns only the edges marked as round-boundary links.
func (g *Graph) FeedbackEdges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Edge
	for _, e := range g.edges {
		if e.Feedback {
			out = append(out, e)
		}
	}
	return out
}

// Upstream returns the intra-round edges pointing into the named node, in
// AddEdge declaration order. The propagator relies on this order for its
// later-edge-wins merge policy.
func (g *Graph) Upstream(name string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Edge
	for _, e := range g.edges {
		if !e.Feedback && e.To == name {
			out = append(out, e)
		}
	}
	return out
}

// Validated reports whether the graph has passed Validate since its last
// mutation.
func (g *Graph) Validated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.validated
}

// Validate runs cycle detection over the intra-round edge set using a
// depth-first search with recursion-stack tracking. On failure it returns a
// CyclicGraphError naming the discovered cycle. Validation is idempotent;
// any later mutation clears the validated flag and requires a re-run.
func (g *Graph) Validate() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	successors := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		if e.Feedback {
			continue
		}
		successors[e.From] = append(successors[e.From], e.To)
	}

	// done: fully explored, known cycle-free. onStack: in the current
	// recursion stack. path: the current traversal, for cycle naming.
	done := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	var path []string

	var visit func(name string) *CyclicGraphError
	visit = func(name string) *CyclicGraphError {
		if done[name] {
			return nil
		}
		if onStack[name] {
			return &CyclicGraphError{Cycle: extractCycle(path, name)}
		}

		onStack[name] = true
		path = append(path, name)

		for _, next := range successors[name] {
			if cerr := visit(next); cerr != nil {
				return cerr
			}
		}

		path = path[:len(path)-1]
		delete(onStack, name)
		done[name] = true
		return nil
	}

	for _, name := range g.order {
		if cerr := visit(name); cerr != nil {
			return cerr
		}
	}

	g.validated = true
	return nil
}

// extractCycle trims the traversal path down to the loop that re-entered
// start, and closes it by repeating the start node.
func extractCycle(path []string, start string) []string {
	for i, name := range path {
		if name == start {
			cycle := make([]string, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			return append(cycle, start)
		}
	}
	return []string{start, start}
}
