package workflow

// ExecutionPlan is a topological ordering of the graph's nodes over the
// intra-round edge set. It is computed once per graph shape and reused for
// every round of an iterative run.
type ExecutionPlan struct {
	// Order lists node names so that every intra-round edge's source
	// appears before its target.
	Order []string
}

// Plan computes the execution plan with Kahn's algorithm. Ties among
// simultaneously-eligible nodes are broken by AddNode insertion order, which
// keeps execution deterministic across runs of the same graph. The graph
// must have been validated since its last mutation.
func (g *Graph) Plan() (*ExecutionPlan, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.validated {
		return nil, ErrNotValidated
	}

	inDegree := make(map[string]int, len(g.nodes))
	successors := make(map[string][]string, len(g.nodes))
	for _, name := range g.order {
		inDegree[name] = 0
	}
	for _, e := range g.edges {
		if e.Feedback {
			continue
		}
		inDegree[e.To]++
		successors[e.From] = append(successors[e.From], e.To)
	}

	order := make([]string, 0, len(g.order))
	scheduled := make(map[string]bool, len(g.order))
	for len(order) < len(g.order) {
		// Pick the eligible node that was inserted earliest. Linear scan
		// over insertion order is fine at workflow scale.
		next := ""
		for _, name := range g.order {
			if !scheduled[name] && inDegree[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			// Unreachable after a successful Validate, kept as a guard
			// against races between mutation and planning.
			return nil, &CyclicGraphError{Cycle: remaining(g.order, scheduled)}
		}

		scheduled[next] = true
		order = append(order, next)
		for _, succ := range successors[next] {
			inDegree[succ]--
		}
	}

	return &ExecutionPlan{Order: order}, nil
}

func remaining(order []string, scheduled map[string]bool) []string {
	var out []string
	for _, name := range order {
		if !scheduled[name] {
			out = append(out, name)
		}
	}
	return out
}
