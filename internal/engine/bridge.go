package engine

import (
	"context"

	"github.com/NoakLiu/SandGraphX/internal/capability"
	"github.com/NoakLiu/SandGraphX/internal/ctxlog"
	"github.com/NoakLiu/SandGraphX/internal/workflow"
)

// harvestExperience observes the round's environment and decision results
// and emits one experience record per environment -> decision chain whose
// (state, action, reward, done) quadruple could be fully assembled. A chain
// broken by an ERROR or SKIPPED node is a logged gap, not an error: the
// trainer simply receives nothing for that chain this round.
func (e *Engine) harvestExperience(ctx context.Context, state *roundState) int {
	if e.policy == nil {
		return 0
	}
	logger := ctxlog.FromContext(ctx).With("round", state.round)

	emitted := 0
	for _, edge := range e.graph.Edges() {
		if edge.Feedback {
			continue
		}
		envNode := e.graph.Node(edge.From)
		decNode := e.graph.Node(edge.To)
		if envNode == nil || decNode == nil {
			continue
		}
		if envNode.Type != workflow.NodeTypeEnvironment || decNode.Type != workflow.NodeTypeDecision {
			continue
		}

		envRes := state.result(envNode.Name)
		decRes := state.result(decNode.Name)
		if envRes == nil || decRes == nil || envRes.Status != StatusOK || decRes.Status != StatusOK {
			logger.Warn("Experience gap: chain incomplete this round.",
				"environment", envNode.Name, "decision", decNode.Name)
			continue
		}

		action, _ := decRes.Output["action"].(string)
		reward, rewardOK := asFloat(envRes.Output["reward"])
		done, _ := envRes.Output["done"].(bool)
		if !rewardOK {
			logger.Warn("Experience gap: environment output carries no reward.",
				"environment", envNode.Name)
			continue
		}

		exp := capability.Experience{
			State:  asStateMap(envRes.Output["next_state"]),
			Action: action,
			Reward: reward,
			Done:   done,
		}
		if err := e.policy.AddExperience(exp); err != nil {
			logger.Warn("Experience dropped: trainer rejected it.", "error", err)
			continue
		}
		emitted++
	}

	logger.Debug("Experience harvest complete.", "emitted", emitted)
	return emitted
}

// asFloat widens the numeric types an environment output may carry.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// asStateMap normalizes an opaque state value into a mapping.
func asStateMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	if v == nil {
		return map[string]any{}
	}
	return map[string]any{"value": v}
}
