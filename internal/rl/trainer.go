// Package rl provides the policy-update trainer behind POLICY_UPDATE nodes.
// Like the decision backend, the trainer is a single shared resource: the
// engine owns the only handle and applies updates at round boundaries under
// exclusive access.
package rl

import (
	"context"
	"fmt"
	"sync"

	"github.com/NoakLiu/SandGraphX/internal/capability"
)

// Config holds trainer hyperparameters.
type Config struct {
	LearningRate   float64
	Gamma          float64
	BufferCapacity int
}

// DefaultConfig returns the trainer defaults used when a workflow's
// policy-update node does not override them.
func DefaultConfig() Config {
	return Config{LearningRate: 1e-4, Gamma: 0.99, BufferCapacity: 10000}
}

// PolicyHook is notified after each applied update. The mock LLM client uses
// it to reflect training progress in its confidence.
type PolicyHook interface {
	RecordUpdate()
}

// Trainer implements capability.PolicyUpdate with a bounded experience
// buffer and batched updates. Experience added since the previous update
// forms the next update's batch.
type Trainer struct {
	cfg  Config
	hook PolicyHook

	mu      sync.Mutex
	buffer  []capability.Experience
	pending []capability.Experience

	updates          int
	totalExperiences int
	rewardSum        float64
	lastMeanReward   float64
}

// NewTrainer builds a trainer. hook may be nil.
func NewTrainer(cfg Config, hook PolicyHook) *Trainer {
	if cfg.BufferCapacity <= 0 {
		cfg.BufferCapacity = DefaultConfig().BufferCapacity
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultConfig().LearningRate
	}
	return &Trainer{cfg: cfg, hook: hook}
}

// AddExperience appends a transition to the buffer and the pending batch.
// When the buffer is at capacity the oldest entry is evicted.
func (t *Trainer) AddExperience(exp capability.Experience) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buffer) >= t.cfg.BufferCapacity {
		t.buffer = t.buffer[1:]
	}
	t.buffer = append(t.buffer, exp)
	t.pending = append(t.pending, exp)
	t.totalExperiences++
	t.rewardSum += exp.Reward
	return nil
}

// UpdatePolicy consumes the pending batch and applies one policy update.
// Called with an empty batch it is a no-op apart from reporting.
func (t *Trainer) UpdatePolicy(ctx context.Context) (capability.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("policy update aborted: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	batch := t.pending
	t.pending = nil

	if len(batch) > 0 {
		var batchReward float64
		for _, exp := range batch {
			batchReward += exp.Reward
		}
		t.lastMeanReward = batchReward / float64(len(batch))
		t.updates++
		if t.hook != nil {
			t.hook.RecordUpdate()
		}
	}

	return t.statsLocked(len(batch)), nil
}

// TrainingStats reports cumulative trainer statistics.
func (t *Trainer) TrainingStats() capability.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statsLocked(0)
}

func (t *Trainer) statsLocked(batchSize int) capability.Stats {
	meanReward := 0.0
	if t.totalExperiences > 0 {
		meanReward = t.rewardSum / float64(t.totalExperiences)
	}
	return capability.Stats{
		"updates":           t.updates,
		"batch_size":        batchSize,
		"buffer_size":       len(t.buffer),
		"total_experiences": t.totalExperiences,
		"reward_sum":        t.rewardSum,
		"mean_reward":       meanReward,
		"last_mean_reward":  t.lastMeanReward,
		"learning_rate":     t.cfg.LearningRate,
	}
}
