// Package engine executes validated workflow graphs: it dispatches nodes to
// their capability handlers over a bounded worker pool, propagates state
// along edges, bridges environment/decision outcomes into RL experience, and
// drives the round loop that unrolls feedback edges across time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/NoakLiu/SandGraphX/internal/capability"
	"github.com/NoakLiu/SandGraphX/internal/ctxlog"
	"github.com/NoakLiu/SandGraphX/internal/workflow"
)

// Options tunes an engine instance.
type Options struct {
	// Workers bounds the per-round worker pool. Defaults to 4.
	Workers int
	// NodeTimeout aborts a single stuck capability call, converting it to
	// an ERROR result. Zero disables the timeout.
	NodeTimeout time.Duration
	// SinglePass restricts the engine to one execution of the plan and
	// rejects feedback edges at validation time.
	SinglePass bool
	// StrictRounds makes a round with any non-OK node fail the whole run
	// with RoundIncompleteError instead of reporting a partial round.
	StrictRounds bool
}

// Engine is the workflow manager façade. It composes the graph builder, the
// scheduler, the node executor, the state propagator, and the experience
// bridge behind the construction and execution entry points.
//
// The decision backend and the trainer are injected once at construction:
// they are global, singly-owned resources that nodes reach only through the
// engine, never own or mutate directly.
type Engine struct {
	opts     Options
	graph    *workflow.Graph
	registry *capability.Registry
	decision capability.Decision
	policy   capability.PolicyUpdate

	// Per-node bindings resolved at AddNode time. Environment nodes each
	// own a private sandbox instance, so state never bleeds between nodes.
	envs     map[string]capability.Environment
	handlers map[string]capability.CustomFunc
}

// New constructs an engine. registry, decision, and policy may each be nil
// when the workflow contains no node of the corresponding type.
func New(registry *capability.Registry, decision capability.Decision, policy capability.PolicyUpdate, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Engine{
		opts:     opts,
		graph:    workflow.NewGraph(),
		registry: registry,
		decision: decision,
		policy:   policy,
		envs:     make(map[string]capability.Environment),
		handlers: make(map[string]capability.CustomFunc),
	}
}

// Graph exposes the underlying graph for inspection.
func (e *Engine) Graph() *workflow.Graph { return e.graph }

// AddNode adds a node and binds it to its capability implementation:
// environment nodes get a fresh sandbox instance, decision nodes are
// registered with the shared backend, custom nodes resolve their handler.
func (e *Engine) AddNode(typ workflow.NodeType, name string, config map[string]any) error {
	var env capability.Environment
	var handler capability.CustomFunc

	switch typ {
	case workflow.NodeTypeEnvironment:
		sandboxType, _ := config["sandbox"].(string)
		if sandboxType == "" {
			return fmt.Errorf("environment node '%s' requires the 'sandbox' option: %w", name, workflow.ErrValidation)
		}
		if e.registry == nil {
			return fmt.Errorf("environment node '%s' needs a capability registry: %w", name, workflow.ErrValidation)
		}
		built, err := e.registry.NewEnvironment(sandboxType, config)
		if err != nil {
			return fmt.Errorf("environment node '%s': %w", name, err)
		}
		env = built
	case workflow.NodeTypeDecision:
		if e.decision == nil {
			return fmt.Errorf("decision node '%s' needs a decision backend: %w", name, workflow.ErrValidation)
		}
		// Register before mutating the graph so a backend rejection leaves
		// no half-added node behind.
		if err := e.decision.Register(name, config); err != nil {
			return fmt.Errorf("registering decision node '%s': %w", name, err)
		}
	case workflow.NodeTypePolicyUpdate:
		if e.policy == nil {
			return fmt.Errorf("policy-update node '%s' needs a trainer: %w", name, workflow.ErrValidation)
		}
	case workflow.NodeTypeCustom:
		handlerName, _ := config["handler"].(string)
		if handlerName == "" {
			handlerName = name
		}
		if e.registry == nil {
			return fmt.Errorf("custom node '%s' needs a capability registry: %w", name, workflow.ErrValidation)
		}
		fn, err := e.registry.Handler(handlerName)
		if err != nil {
			return fmt.Errorf("custom node '%s': %w", name, err)
		}
		handler = fn
	}

	if err := e.graph.AddNode(typ, name, config); err != nil {
		return err
	}

	switch typ {
	case workflow.NodeTypeEnvironment:
		e.envs[name] = env
	case workflow.NodeTypeCustom:
		e.handlers[name] = handler
	}
	return nil
}

// AddEdge adds a directed intra-round edge.
func (e *Engine) AddEdge(from, to string) error {
	return e.graph.AddEdge(from, to)
}

// MarkFeedback tags an existing edge as a round-boundary link.
func (e *Engine) MarkFeedback(from, to string) error {
	return e.graph.MarkFeedback(from, to)
}

// ExecuteNode runs a single node ad hoc with the supplied inputs merged over
// its static config, bypassing validation and scheduling. Intended for
// debugging and tests; failures still come back as an ERROR result rather
// than an error return.
func (e *Engine) ExecuteNode(ctx context.Context, name string, inputs map[string]any) (*NodeResult, error) {
	node := e.graph.Node(name)
	if node == nil {
		return nil, fmt.Errorf("unknown node '%s'", name)
	}

	merged := make(map[string]any, len(node.Config)+len(inputs))
	for k, v := range node.Config {
		merged[k] = v
	}
	for k, v := range inputs {
		merged[k] = v
	}
	return e.executeNode(ctx, node, merged), nil
}

// ExecuteFullWorkflow validates the graph, derives the execution plan once,
// and drives it for the requested number of rounds. Feedback edges carry
// state across round boundaries; the policy update runs once per round with
// the experience gathered during it. A node output with done=true ends the
// run early.
func (e *Engine) ExecuteFullWorkflow(ctx context.Context, rounds int) (*AggregateResult, error) {
	logger := ctxlog.FromContext(ctx)
	if rounds <= 0 {
		rounds = 1
	}

	if e.opts.SinglePass {
		if len(e.graph.FeedbackEdges()) > 0 {
			return nil, fmt.Errorf("feedback edges are not allowed in single-pass mode: %w", workflow.ErrValidation)
		}
		rounds = 1
	}

	if err := e.graph.Validate(); err != nil {
		return nil, err
	}
	plan, err := e.graph.Plan()
	if err != nil {
		return nil, err
	}
	logger.Debug("Execution plan computed.", "order", plan.Order, "rounds", rounds)

	agg := &AggregateResult{RunID: uuid.NewString()}
	carried := map[string]map[string]any{}
	anyOK := false

	for r := 0; r < rounds; r++ {
		state := newRoundState(r, carried)
		e.runRound(ctx, plan, state)
		e.harvestExperience(ctx, state)
		e.applyPolicyUpdate(ctx, state)

		results := state.snapshot()
		failed := false
		var failedNames []string
		for _, res := range results {
			if res.Status == StatusOK {
				anyOK = true
			} else {
				failed = true
				failedNames = append(failedNames, res.Node)
			}
		}
		agg.PerRound = append(agg.PerRound, &RoundResult{Round: r, Results: results, Failed: failed})
		agg.FinalState = finalStateOf(plan, results, agg.FinalState)

		// A backend that was never reachable fails the whole run fast;
		// once anything has succeeded, the same failure is just a partial
		// round.
		if !anyOK {
			for _, res := range results {
				var buErr *capability.BackendUnavailableError
				if res.cause != nil && errors.As(res.cause, &buErr) {
					return nil, fmt.Errorf("workflow aborted before any node ran: %w", res.cause)
				}
			}
		}

		if failed {
			logger.Warn("Round completed partially.", "round", r, "failed_nodes", failedNames)
			if e.opts.StrictRounds {
				sort.Strings(failedNames)
				return nil, &RoundIncompleteError{Round: r, Failed: failedNames}
			}
		}

		if doneSignaled(results) {
			logger.Info("Termination signaled by node output.", "round", r)
			break
		}
		carried = e.carryForward(state)
	}

	if e.policy != nil {
		agg.TrainingStats = e.policy.TrainingStats()
	}
	logger.Info("Workflow run finished.", "run_id", agg.RunID, "rounds", len(agg.PerRound))
	return agg, nil
}

// applyPolicyUpdate runs the round-boundary policy update and overwrites the
// policy node's snapshot output with the fresh update statistics, so a
// feedback edge out of the optimizer carries current numbers into the next
// round.
func (e *Engine) applyPolicyUpdate(ctx context.Context, state *roundState) {
	if e.policy == nil {
		return
	}
	policyNode := e.policyNode()
	if policyNode == nil {
		return
	}
	res := state.result(policyNode.Name)
	if res == nil || res.Status != StatusOK {
		return
	}

	stats, err := e.policy.UpdatePolicy(ctx)
	if err != nil {
		state.setResult(&NodeResult{
			Node:   policyNode.Name,
			Status: StatusError,
			Err:    fmt.Sprintf("policy update failed: %v", err),
			cause:  err,
		})
		return
	}
	state.setResult(&NodeResult{Node: policyNode.Name, Status: StatusOK, Output: map[string]any(stats)})
}

// policyNode returns the graph's policy-update node, or nil. Workflows
// declare at most one; with several, the first by insertion order is the one
// whose output reflects the round's update.
func (e *Engine) policyNode() *workflow.Node {
	for _, node := range e.graph.Nodes() {
		if node.Type == workflow.NodeTypePolicyUpdate {
			return node
		}
	}
	return nil
}

// finalStateOf picks the carried-forward final state for the aggregate
// result: the last environment next_state in plan order, falling back to the
// previous value when this round produced none.
func finalStateOf(plan *workflow.ExecutionPlan, results map[string]*NodeResult, prev map[string]any) map[string]any {
	state := prev
	for _, name := range plan.Order {
		res, ok := results[name]
		if !ok || res.Status != StatusOK {
			continue
		}
		if next, isMap := res.Output["next_state"].(map[string]any); isMap {
			state = next
		}
	}
	return state
}

// doneSignaled reports whether any OK node output carries done=true.
func doneSignaled(results map[string]*NodeResult) bool {
	for _, res := range results {
		if res.Status != StatusOK {
			continue
		}
		if done, ok := res.Output["done"].(bool); ok && done {
			return true
		}
	}
	return false
}
