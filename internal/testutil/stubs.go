// Package testutil provides stub capability implementations shared by the
// engine and workflow tests: a scriptable environment, a scripted decision
// backend, and a recording trainer.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

// StubEnvironment is a deterministic environment whose behavior is driven
// by fields instead of simulation. The zero value returns reward 0 forever.
type StubEnvironment struct {
	mu sync.Mutex

	// Reward is returned on every Execute call.
	Reward float64
	// DoneAfter makes Execute report done=true from that step on. Zero
	// means never done.
	DoneAfter int
	// Err, when set, fails every Execute call.
	Err error
	// Delay stalls Execute, for timeout tests.
	Delay time.Duration

	step    int
	actions []string
}

// GenerateCase implements capability.Environment.
func (s *StubEnvironment) GenerateCase() capability.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return capability.Case{"step": s.step}
}

// Execute implements capability.Environment.
func (s *StubEnvironment) Execute(ctx context.Context, action string) (capability.StepResult, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return capability.StepResult{}, ctx.Err()
		}
	}
	if s.Err != nil {
		return capability.StepResult{}, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.step++
	s.actions = append(s.actions, action)
	return capability.StepResult{
		NextState: map[string]any{"step": s.step, "last_action": action},
		Reward:    s.Reward,
		Done:      s.DoneAfter > 0 && s.step >= s.DoneAfter,
	}, nil
}

// VerifyScore implements capability.Environment.
func (s *StubEnvironment) VerifyScore(action string, c capability.Case) float64 {
	if action == "" {
		return 0.0
	}
	return 1.0
}

// Actions returns the actions executed so far.
func (s *StubEnvironment) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.actions))
	copy(out, s.actions)
	return out
}

// StubFactory adapts a prebuilt environment into a registry factory, so a
// test can hold a reference to the instance a node will use.
func StubFactory(env capability.Environment) capability.EnvironmentFactory {
	return func(config map[string]any) (capability.Environment, error) {
		return env, nil
	}
}

// ScriptedDecision is a decision backend that replies with a fixed text and
// records every prompt it saw.
type ScriptedDecision struct {
	mu sync.Mutex

	// Text is returned for every Generate call.
	Text string
	// Err, when set, fails every Generate call.
	Err error

	registered map[string]map[string]any
	prompts    []string
}

// Register implements capability.Decision.
func (d *ScriptedDecision) Register(nodeID string, opts map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.registered == nil {
		d.registered = make(map[string]map[string]any)
	}
	d.registered[nodeID] = opts
	return nil
}

// Generate implements capability.Decision.
func (d *ScriptedDecision) Generate(ctx context.Context, nodeID, prompt string, opts map[string]any) (*capability.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.registered[nodeID]; !ok {
		return nil, fmt.Errorf("decision node '%s' is not registered", nodeID)
	}
	if d.Err != nil {
		return nil, d.Err
	}
	d.prompts = append(d.prompts, prompt)
	return &capability.Response{Text: d.Text, Confidence: 0.9}, nil
}

// Prompts returns every prompt generated so far.
func (d *ScriptedDecision) Prompts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.prompts))
	copy(out, d.prompts)
	return out
}

// RecorderPolicy is a trainer that records experience and counts updates.
type RecorderPolicy struct {
	mu sync.Mutex

	// UpdateErr, when set, fails every UpdatePolicy call.
	UpdateErr error

	experiences []capability.Experience
	updates     int
}

// AddExperience implements capability.PolicyUpdate.
func (p *RecorderPolicy) AddExperience(exp capability.Experience) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.experiences = append(p.experiences, exp)
	return nil
}

// UpdatePolicy implements capability.PolicyUpdate.
func (p *RecorderPolicy) UpdatePolicy(ctx context.Context) (capability.Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.UpdateErr != nil {
		return nil, p.UpdateErr
	}
	p.updates++
	return p.statsLocked(), nil
}

// TrainingStats implements capability.PolicyUpdate.
func (p *RecorderPolicy) TrainingStats() capability.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statsLocked()
}

func (p *RecorderPolicy) statsLocked() capability.Stats {
	var rewardSum float64
	for _, exp := range p.experiences {
		rewardSum += exp.Reward
	}
	return capability.Stats{
		"updates":           p.updates,
		"total_experiences": len(p.experiences),
		"reward_sum":        rewardSum,
	}
}

// Experiences returns a copy of the recorded experience buffer.
func (p *RecorderPolicy) Experiences() []capability.Experience {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capability.Experience, len(p.experiences))
	copy(out, p.experiences)
	return out
}

// Updates returns how many policy updates have been applied.
func (p *RecorderPolicy) Updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates
}
