// Package capability defines the narrow contracts through which the workflow
// engine drives its external collaborators: task environments, the shared
// decision backend, and the policy-update trainer. The engine only ever
// calls these interfaces; it never owns or reimplements what sits behind
// them.
package capability

import "context"

// Case is an opaque task instance produced by an environment's generator.
type Case map[string]any

// StepResult is the outcome of executing a single action in an environment.
type StepResult struct {
	NextState map[string]any
	Reward    float64
	Done      bool
}

// Environment is the contract for an isolated task environment ("sandbox").
// Implementations must be deterministic given identical internal state and
// action, so workflow runs are reproducible in tests.
type Environment interface {
	// GenerateCase produces the task instance the next action is judged
	// against.
	GenerateCase() Case
	// Execute applies an action to the environment's internal state.
	Execute(ctx context.Context, action string) (StepResult, error)
	// VerifyScore rates an action against a case, higher is better.
	VerifyScore(action string, c Case) float64
}

// Response is a decision backend's answer to a single prompt.
type Response struct {
	Text       string
	Confidence float64
	Reasoning  string
	Metadata   map[string]any
}

// Decision is the contract for the shared language-model backend. There is a
// single instance per engine; concurrent decision nodes all route through
// it, and serialization or rate limiting is the backend's concern.
type Decision interface {
	// Register must be called once per decision node before its first
	// Generate. The options become defaults merged under call options.
	Register(nodeID string, opts map[string]any) error
	// Generate produces a response for the named node.
	Generate(ctx context.Context, nodeID, prompt string, opts map[string]any) (*Response, error)
}

// Experience is one (state, action, reward, done) transition harvested from
// a round of workflow execution.
type Experience struct {
	State  map[string]any
	Action string
	Reward float64
	Done   bool
}

// Stats is a loosely-typed statistics mapping reported by trainers and
// backends.
type Stats map[string]any

// PolicyUpdate is the contract for the reinforcement-learning trainer. The
// engine enqueues experience as rounds produce it and calls UpdatePolicy
// only at round boundaries, batching everything gathered since the previous
// update. Updates run under an implicit exclusive-access assumption: no node
// reads policy state concurrently with one.
type PolicyUpdate interface {
	AddExperience(exp Experience) error
	UpdatePolicy(ctx context.Context) (Stats, error)
	TrainingStats() Stats
}

// CustomFunc is the handler signature for custom nodes: merged inputs in,
// opaque output mapping out.
type CustomFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)
