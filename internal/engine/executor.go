package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/NoakLiu/SandGraphX/internal/ctxlog"
	"github.com/NoakLiu/SandGraphX/internal/workflow"
)

// executeNode dispatches one node to its capability handler and converts any
// failure, timeout, or panic into a NodeResult with StatusError. Errors
// never propagate out of the executor; the round decides what to do with
// them.
func (e *Engine) executeNode(ctx context.Context, node *workflow.Node, inputs map[string]any) *NodeResult {
	logger := ctxlog.FromContext(ctx).With("node", node.Name, "type", string(node.Type))
	logger.Debug("Executing node.")

	output, err := e.callWithTimeout(ctx, func(callCtx context.Context) (map[string]any, error) {
		switch node.Type {
		case workflow.NodeTypeEnvironment:
			return e.runEnvironment(callCtx, node, inputs)
		case workflow.NodeTypeDecision:
			return e.runDecision(callCtx, node, inputs)
		case workflow.NodeTypePolicyUpdate:
			return e.runPolicySnapshot(node)
		case workflow.NodeTypeCustom:
			return e.runCustom(callCtx, node, inputs)
		}
		return nil, fmt.Errorf("node '%s' has unknown type '%s'", node.Name, node.Type)
	})
	if err != nil {
		logger.Error("Node execution failed.", "error", err)
		return &NodeResult{Node: node.Name, Status: StatusError, Err: err.Error(), cause: err}
	}

	logger.Debug("Node execution succeeded.")
	return &NodeResult{Node: node.Name, Status: StatusOK, Output: output}
}

// callWithTimeout runs fn under the configured per-node timeout and recovers
// panics into errors. A stuck capability call becomes an ERROR result rather
// than blocking the round; its goroutine is handed a canceled context and
// left to unwind on its own.
func (e *Engine) callWithTimeout(ctx context.Context, fn func(context.Context) (map[string]any, error)) (map[string]any, error) {
	if e.opts.NodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.NodeTimeout)
		defer cancel()
	}

	type outcome struct {
		output map[string]any
		err    error
	}
	resultCh := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{err: fmt.Errorf("node handler panicked: %v", r)}
			}
		}()
		output, err := fn(ctx)
		resultCh <- outcome{output: output, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("node call aborted: %w", ctx.Err())
	case res := <-resultCh:
		return res.output, res.err
	}
}

// runEnvironment executes an action in the node's sandbox instance and
// packages the transition. The action comes from the merged inputs,
// typically produced by an upstream or feedback decision node, falling back
// to the node's configured default.
func (e *Engine) runEnvironment(ctx context.Context, node *workflow.Node, inputs map[string]any) (map[string]any, error) {
	env, ok := e.envs[node.Name]
	if !ok {
		return nil, fmt.Errorf("environment node '%s' has no sandbox instance", node.Name)
	}

	action, _ := inputs["action"].(string)
	if action == "" {
		action, _ = node.Config["default_action"].(string)
	}

	c := env.GenerateCase()
	step, err := env.Execute(ctx, action)
	if err != nil {
		return nil, fmt.Errorf("environment step failed: %w", err)
	}

	return map[string]any{
		"next_state": step.NextState,
		"reward":     step.Reward,
		"done":       step.Done,
		"score":      env.VerifyScore(action, c),
		"case":       map[string]any(c),
	}, nil
}

// runDecision assembles a prompt from the node's inputs and forwards it to
// the shared decision backend. The executor never inspects or alters model
// internals; it only shapes the prompt and relays the response.
func (e *Engine) runDecision(ctx context.Context, node *workflow.Node, inputs map[string]any) (map[string]any, error) {
	if e.decision == nil {
		return nil, fmt.Errorf("decision node '%s' has no backend configured", node.Name)
	}

	resp, err := e.decision.Generate(ctx, node.Name, buildPrompt(node, inputs), nil)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"action":     resp.Text,
		"text":       resp.Text,
		"confidence": resp.Confidence,
		"reasoning":  resp.Reasoning,
		"metadata":   resp.Metadata,
	}, nil
}

// runPolicySnapshot reports the trainer's current statistics. The actual
// policy update never happens here: updates are applied once per round at
// the boundary, with the batch of experience gathered during the round. The
// round driver overwrites this output with the fresh update stats before
// feedback edges are resolved.
func (e *Engine) runPolicySnapshot(node *workflow.Node) (map[string]any, error) {
	if e.policy == nil {
		return nil, fmt.Errorf("policy-update node '%s' has no trainer configured", node.Name)
	}
	return map[string]any(e.policy.TrainingStats()), nil
}

// runCustom invokes the caller-registered handler bound to the node.
func (e *Engine) runCustom(ctx context.Context, node *workflow.Node, inputs map[string]any) (map[string]any, error) {
	fn, ok := e.handlers[node.Name]
	if !ok {
		return nil, fmt.Errorf("custom node '%s' has no handler bound", node.Name)
	}
	return fn(ctx, inputs)
}

// buildPrompt renders a decision prompt from the node config and merged
// inputs. A configured prompt_template is used verbatim with the state
// appended; otherwise a compact default is generated. Input keys are
// rendered in sorted order so prompts are deterministic.
func buildPrompt(node *workflow.Node, inputs map[string]any) string {
	state := renderState(inputs)
	if template, ok := node.Config["prompt_template"].(string); ok && template != "" {
		return template + "\n\nCurrent state:\n" + state
	}

	role, _ := node.Config["role"].(string)
	if role == "" {
		role = "decision maker"
	}
	return fmt.Sprintf("You are a %s. Given the current state, decide the next action.\n\nCurrent state:\n%s\n\nAnswer with the action only.", role, state)
}

// renderState formats the observable inputs, skipping the node's own static
// options so the prompt carries signal, not configuration noise.
func renderState(inputs map[string]any) string {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		switch k {
		case "role", "reasoning_type", "temperature", "max_length", "prompt_template":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		return "(no observations)"
	}
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("- %s: %v\n", k, inputs[k])
	}
	return out
}
