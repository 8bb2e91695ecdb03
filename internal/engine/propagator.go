package engine

import (
	"sync"

	"github.com/NoakLiu/SandGraphX/internal/workflow"
)

// roundState is the per-round execution context: the results produced so
// far, plus the inputs carried into this round across feedback edges. A
// fresh roundState is created for every round, so a node's result is only
// ever visible to nodes scheduled after it in the same round.
type roundState struct {
	round int

	mu      sync.Mutex
	results map[string]*NodeResult

	// carried maps node name to the extra inputs delivered by the previous
	// round (feedback edge payloads and carried environment state).
	carried map[string]map[string]any
}

func newRoundState(round int, carried map[string]map[string]any) *roundState {
	if carried == nil {
		carried = map[string]map[string]any{}
	}
	return &roundState{
		round:   round,
		results: make(map[string]*NodeResult),
		carried: carried,
	}
}

func (s *roundState) setResult(r *NodeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.Node] = r
}

func (s *roundState) result(name string) *NodeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[name]
}

// gatherInputs assembles the merged input mapping for a node: its static
// config first, then the inputs carried from the previous round, then the
// outputs of its intra-round upstream nodes. Upstream outputs are applied in
// AddEdge declaration order, so on overlapping keys the edge declared later
// wins. That rule is deliberate and load-bearing: silent overwrites are a
// classic workflow-authoring bug, and edge order gives authors a documented,
// deterministic way to resolve them.
func (s *roundState) gatherInputs(g *workflow.Graph, node *workflow.Node) map[string]any {
	merged := make(map[string]any, len(node.Config))
	for k, v := range node.Config {
		merged[k] = v
	}
	for k, v := range s.carried[node.Name] {
		merged[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range g.Upstream(node.Name) {
		res, ok := s.results[e.From]
		if !ok || res.Status != StatusOK {
			continue
		}
		for k, v := range res.Output {
			merged[k] = v
		}
	}
	return merged
}

// snapshot returns a copy of the round's results keyed by node name.
func (s *roundState) snapshot() map[string]*NodeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*NodeResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}
