package engine

import (
	"fmt"
	"strings"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

// Status classifies the outcome of one node execution within a round.
type Status string

const (
	// StatusOK means the node's capability call completed and produced an
	// output mapping.
	StatusOK Status = "ok"
	// StatusError means the call failed, timed out, or panicked. The
	// failure is recorded on the result and does not propagate out of the
	// executor.
	StatusError Status = "error"
	// StatusSkipped means a direct or transitive upstream dependency
	// failed, so the node was never dispatched this round.
	StatusSkipped Status = "skipped"
)

// NodeResult is the outcome of one node for one round. It is owned by the
// round's execution context; callers receive copies inside the aggregate
// result.
type NodeResult struct {
	Node   string
	Status Status
	Output map[string]any
	Err    string

	// cause retains the typed error behind Err so the engine can apply
	// per-kind policy (e.g. the backend-unavailable fail-fast rule)
	// without parsing strings.
	cause error
}

// Cause returns the underlying error of an ERROR result, if any.
func (r *NodeResult) Cause() error { return r.cause }

// RoundResult collects every node's result for one round, keyed by node
// name. Failed reports whether any node ended the round in a non-OK status.
type RoundResult struct {
	Round   int
	Results map[string]*NodeResult
	Failed  bool
}

// AggregateResult is the return value of a full workflow run: per-round
// results, the final carried state, and the trainer's statistics.
type AggregateResult struct {
	RunID         string
	PerRound      []*RoundResult
	FinalState    map[string]any
	TrainingStats capability.Stats
}

// RoundIncompleteError is returned instead of a partial result when the
// caller asked for the strict-rounds guarantee and a round finished with
// non-OK nodes.
type RoundIncompleteError struct {
	Round  int
	Failed []string
}

func (e *RoundIncompleteError) Error() string {
	return fmt.Sprintf("round %d incomplete, failed nodes: %s", e.Round, strings.Join(e.Failed, ", "))
}
