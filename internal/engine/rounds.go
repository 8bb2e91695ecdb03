package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/NoakLiu/SandGraphX/internal/ctxlog"
	"github.com/NoakLiu/SandGraphX/internal/workflow"
)

// runNode is the per-round scheduling wrapper around a workflow node.
type runNode struct {
	spec       *workflow.Node
	depCount   atomic.Int32
	dependents []*runNode
	skipOnce   sync.Once
}

// runRound executes one full pass of the plan over a bounded worker pool. A
// node is dispatched only once every intra-round upstream result exists; a
// failed node marks its direct and transitive dependents SKIPPED while
// independent branches keep running.
func (e *Engine) runRound(ctx context.Context, plan *workflow.ExecutionPlan, state *roundState) {
	logger := ctxlog.FromContext(ctx).With("round", state.round)

	nodes := make(map[string]*runNode, len(plan.Order))
	for _, name := range plan.Order {
		nodes[name] = &runNode{spec: e.graph.Node(name)}
	}
	for _, edge := range e.graph.Edges() {
		if edge.Feedback {
			continue
		}
		from, to := nodes[edge.From], nodes[edge.To]
		to.depCount.Add(1)
		from.dependents = append(from.dependents, to)
	}

	readyChan := make(chan *runNode, len(nodes))
	rootCount := 0
	// Seed roots in plan order so single-worker runs follow the plan
	// exactly.
	for _, name := range plan.Order {
		if nodes[name].depCount.Load() == 0 {
			readyChan <- nodes[name]
			rootCount++
		}
	}
	logger.Debug("Round scheduling started.", "nodes", len(nodes), "roots", rootCount)

	var wg sync.WaitGroup
	wg.Add(len(nodes))

	workers := e.opts.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go e.roundWorker(ctx, readyChan, state, &wg, i)
	}

	wg.Wait()
	close(readyChan)
	logger.Debug("Round scheduling finished.")
}

// roundWorker is the processing loop for one concurrent worker.
func (e *Engine) roundWorker(ctx context.Context, readyChan chan *runNode, state *roundState, wg *sync.WaitGroup, workerID int) {
	logger := ctxlog.FromContext(ctx).With("worker", workerID, "round", state.round)

	for node := range readyChan {
		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				state.setResult(&NodeResult{
					Node:   node.spec.Name,
					Status: StatusError,
					Err:    fmt.Sprintf("round canceled: %v", ctx.Err()),
					cause:  ctx.Err(),
				})
				// Mirror the normal error path: dependents must still be
				// marked SKIPPED and accounted for, or wg.Wait never
				// returns.
				e.skipDependents(ctx, node, state, wg)
				wg.Done()
			})
			continue
		}

		logger.Debug("Worker picked up node.", "node", node.spec.Name)
		inputs := state.gatherInputs(e.graph, node.spec)
		result := e.executeNode(ctx, node.spec, inputs)
		state.setResult(result)

		if result.Status == StatusError {
			e.skipDependents(ctx, node, state, wg)
			wg.Done()
			continue
		}

		for _, dependent := range node.dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		wg.Done()
	}
}

// skipDependents recursively marks downstream nodes SKIPPED. skipOnce keeps
// the bookkeeping correct when a node has several failed upstreams.
func (e *Engine) skipDependents(ctx context.Context, node *runNode, state *roundState, wg *sync.WaitGroup) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping node due to upstream failure.",
				"node", dependent.spec.Name, "upstream", node.spec.Name)
			state.setResult(&NodeResult{
				Node:   dependent.spec.Name,
				Status: StatusSkipped,
				Err:    fmt.Sprintf("skipped due to upstream failure of '%s'", node.spec.Name),
			})
			wg.Done()
			e.skipDependents(ctx, dependent, state, wg)
		})
	}
}

// carryForward computes the inputs delivered into the next round: each
// feedback edge carries its tail node's output into its head node, and every
// environment node additionally carries its own next_state under the "state"
// key, so round k+1 observes round k's resulting environment state.
func (e *Engine) carryForward(state *roundState) map[string]map[string]any {
	carried := make(map[string]map[string]any)
	add := func(name string, key string, value any) {
		if carried[name] == nil {
			carried[name] = make(map[string]any)
		}
		carried[name][key] = value
	}

	for _, edge := range e.graph.FeedbackEdges() {
		res := state.result(edge.From)
		if res == nil || res.Status != StatusOK {
			continue
		}
		for k, v := range res.Output {
			add(edge.To, k, v)
		}
	}

	for _, node := range e.graph.Nodes() {
		if node.Type != workflow.NodeTypeEnvironment {
			continue
		}
		res := state.result(node.Name)
		if res == nil || res.Status != StatusOK {
			continue
		}
		if next, ok := res.Output["next_state"]; ok {
			add(node.Name, "state", next)
		}
	}
	return carried
}
