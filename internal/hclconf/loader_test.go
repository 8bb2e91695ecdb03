package hclconf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NoakLiu/SandGraphX/internal/config"
)

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullWorkflow(t *testing.T) {
	path := writeWorkflow(t, `
workflow "trading" {
  rounds = 5
}

node "environment" "market" {
  sandbox        = "trading"
  seed           = 42
  default_action = "HOLD"
  initial_state = {
    cash = 100000
  }
}

node "decision" "trader" {
  role        = "trading strategist"
  temperature = 0.7
}

node "policy_update" "optimizer" {}

edge {
  from = "market"
  to   = "trader"
}

edge {
  from = "trader"
  to   = "optimizer"
}

edge {
  from     = "optimizer"
  to       = "market"
  feedback = true
}
`)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	want := &config.Model{Workflow: &config.Workflow{
		Name:   "trading",
		Rounds: 5,
		Nodes: []*config.Node{
			{Type: "environment", Name: "market", Config: map[string]any{
				"sandbox":        "trading",
				"seed":           42,
				"default_action": "HOLD",
				"initial_state":  map[string]any{"cash": 100000},
			}},
			{Type: "decision", Name: "trader", Config: map[string]any{
				"role":        "trading strategist",
				"temperature": 0.7,
			}},
			{Type: "policy_update", Name: "optimizer", Config: map[string]any{}},
		},
		Edges: []*config.Edge{
			{From: "market", To: "trader"},
			{From: "trader", To: "optimizer"},
			{From: "optimizer", To: "market", Feedback: true},
		},
	}}
	assert.Empty(t, cmp.Diff(want, model))
}

func TestLoadDefaultsRoundsToOne(t *testing.T) {
	path := writeWorkflow(t, `workflow "minimal" {}`)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, model.Workflow.Rounds)
	assert.False(t, model.Workflow.SinglePass)
}

func TestLoadModes(t *testing.T) {
	t.Run("single_pass", func(t *testing.T) {
		path := writeWorkflow(t, `
workflow "oneshot" {
  mode = "single_pass"
}
`)
		model, err := NewLoader().Load(context.Background(), path)
		require.NoError(t, err)
		assert.True(t, model.Workflow.SinglePass)
	})

	t.Run("iterative", func(t *testing.T) {
		path := writeWorkflow(t, `
workflow "loop" {
  mode   = "iterative"
  rounds = 3
}
`)
		model, err := NewLoader().Load(context.Background(), path)
		require.NoError(t, err)
		assert.False(t, model.Workflow.SinglePass)
		assert.Equal(t, 3, model.Workflow.Rounds)
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		path := writeWorkflow(t, `
workflow "bad" {
  mode = "recursive"
}
`)
		_, err := NewLoader().Load(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mode")
	})
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
		assert.Error(t, err)
	})

	t.Run("syntax error", func(t *testing.T) {
		path := writeWorkflow(t, `workflow "broken" {`)
		_, err := NewLoader().Load(context.Background(), path)
		assert.Error(t, err)
	})

	t.Run("missing workflow block", func(t *testing.T) {
		path := writeWorkflow(t, `node "custom" "only" {}`)
		_, err := NewLoader().Load(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no 'workflow' block")
	})

	t.Run("non-constant option", func(t *testing.T) {
		path := writeWorkflow(t, `
workflow "vars" {}

node "custom" "c" {
  value = var.undefined
}
`)
		_, err := NewLoader().Load(context.Background(), path)
		assert.Error(t, err)
	})
}

func TestOptionValueTranslation(t *testing.T) {
	path := writeWorkflow(t, `
workflow "types" {}

node "custom" "c" {
  str    = "s"
  whole  = 7
  frac   = 1.5
  flag   = true
  list   = ["a", "b"]
  nested = {
    k = 1
  }
}
`)

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, model.Workflow.Nodes, 1)

	cfg := model.Workflow.Nodes[0].Config
	assert.Equal(t, "s", cfg["str"])
	assert.Equal(t, 7, cfg["whole"])
	assert.Equal(t, 1.5, cfg["frac"])
	assert.Equal(t, true, cfg["flag"])
	assert.Equal(t, []any{"a", "b"}, cfg["list"])
	assert.Equal(t, map[string]any{"k": 1}, cfg["nested"])
}
