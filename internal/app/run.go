package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NoakLiu/SandGraphX/internal/capability"
	"github.com/NoakLiu/SandGraphX/internal/ctxlog"
	"github.com/NoakLiu/SandGraphX/internal/engine"
	"github.com/NoakLiu/SandGraphX/internal/llm"
	"github.com/NoakLiu/SandGraphX/internal/rl"
	"github.com/NoakLiu/SandGraphX/internal/workflow"
)

// Run loads the workflow file, assembles the engine with its shared
// backends, executes the requested rounds, and writes a JSON summary of the
// aggregate result.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	model, err := a.loader.Load(ctx, a.cfg.WorkflowPath)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	wf := model.Workflow
	a.logger.Info("Workflow loaded.", "name", wf.Name, "nodes", len(wf.Nodes), "edges", len(wf.Edges))

	eng, client, err := a.buildEngine(wf.SinglePass)
	if err != nil {
		return err
	}

	for _, n := range wf.Nodes {
		if err := eng.AddNode(workflow.NodeType(n.Type), n.Name, n.Config); err != nil {
			return fmt.Errorf("failed to build workflow graph: %w", err)
		}
	}
	for _, e := range wf.Edges {
		if err := eng.AddEdge(e.From, e.To); err != nil {
			return fmt.Errorf("failed to build workflow graph: %w", err)
		}
		if e.Feedback {
			if err := eng.MarkFeedback(e.From, e.To); err != nil {
				return fmt.Errorf("failed to build workflow graph: %w", err)
			}
		}
	}
	a.logger.Debug("Workflow graph assembled.")

	rounds := wf.Rounds
	if a.cfg.Rounds > 0 {
		rounds = a.cfg.Rounds
	}

	a.logger.Info("Starting workflow execution.", "rounds", rounds, "backend", client.Name())
	result, err := eng.ExecuteFullWorkflow(ctx, rounds)
	if err != nil {
		return fmt.Errorf("workflow execution failed: %w", err)
	}
	a.logger.Info("Workflow execution finished.", "run_id", result.RunID)

	return a.writeSummary(result)
}

// buildEngine wires the engine to its injected shared resources: the
// decision backend chosen by config and the RL trainer hooked to it.
// singlePass comes from the workflow file's mode and restricts the engine to
// one round with feedback edges rejected.
func (a *App) buildEngine(singlePass bool) (*engine.Engine, llm.Client, error) {
	var client llm.Client
	var hook rl.PolicyHook
	switch a.cfg.Backend {
	case "http":
		client = llm.NewHTTPClient(llm.HTTPClientConfig{
			BaseURL: a.cfg.BackendURL,
			APIKey:  a.cfg.APIKey,
			Model:   a.cfg.Model,
		})
	default:
		mock := llm.NewMockClient()
		client = mock
		hook = mock
	}

	manager := llm.NewManager(client)
	trainer := rl.NewTrainer(rl.DefaultConfig(), hook)

	eng := engine.New(a.registry, manager, trainer, engine.Options{
		Workers:      a.cfg.Workers,
		NodeTimeout:  a.cfg.NodeTimeout,
		SinglePass:   singlePass,
		StrictRounds: a.cfg.StrictRounds,
	})
	return eng, client, nil
}

// summary is the trimmed, stable-shaped form of an aggregate result printed
// to stdout.
type summary struct {
	RunID         string                      `json:"run_id"`
	Rounds        int                         `json:"rounds"`
	PerRound      []map[string]map[string]any `json:"per_round"`
	FinalState    map[string]any              `json:"final_state,omitempty"`
	TrainingStats capability.Stats            `json:"training_stats,omitempty"`
}

func (a *App) writeSummary(result *engine.AggregateResult) error {
	out := summary{
		RunID:         result.RunID,
		Rounds:        len(result.PerRound),
		FinalState:    result.FinalState,
		TrainingStats: result.TrainingStats,
	}
	for _, round := range result.PerRound {
		nodes := make(map[string]map[string]any, len(round.Results))
		for name, res := range round.Results {
			entry := map[string]any{"status": string(res.Status)}
			if res.Status == engine.StatusOK {
				entry["output"] = res.Output
			} else {
				entry["error"] = res.Err
			}
			nodes[name] = entry
		}
		out.PerRound = append(out.PerRound, nodes)
	}

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
