package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	t.Run("requires validation first", func(t *testing.T) {
		g := diamond(t)
		_, err := g.Plan()
		assert.ErrorIs(t, err, ErrNotValidated)
	})

	t.Run("every edge source precedes its target", func(t *testing.T) {
		g := diamond(t)
		require.NoError(t, g.Validate())

		plan, err := g.Plan()
		require.NoError(t, err)
		require.Len(t, plan.Order, 4)

		pos := positions(plan.Order)
		for _, e := range g.Edges() {
			assert.Less(t, pos[e.From], pos[e.To], "edge %s -> %s out of order", e.From, e.To)
		}
	})

	t.Run("ties break by insertion order", func(t *testing.T) {
		g := NewGraph()
		// c, b, a are all roots; insertion order must win over name order.
		for _, name := range []string{"c", "b", "a", "sink"} {
			require.NoError(t, g.AddNode(NodeTypeCustom, name, nil))
		}
		for _, name := range []string{"c", "b", "a"} {
			require.NoError(t, g.AddEdge(name, "sink"))
		}
		require.NoError(t, g.Validate())

		plan, err := g.Plan()
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a", "sink"}, plan.Order)
	})

	t.Run("deterministic across repeated planning", func(t *testing.T) {
		g := diamond(t)
		require.NoError(t, g.Validate())

		first, err := g.Plan()
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := g.Plan()
			require.NoError(t, err)
			assert.Equal(t, first.Order, again.Order)
		}
	})

	t.Run("feedback edges do not constrain the order", func(t *testing.T) {
		g := NewGraph()
		for _, name := range []string{"env", "dec", "opt"} {
			require.NoError(t, g.AddNode(NodeTypeCustom, name, nil))
		}
		require.NoError(t, g.AddEdge("env", "dec"))
		require.NoError(t, g.AddEdge("dec", "opt"))
		require.NoError(t, g.AddEdge("opt", "env"))
		require.NoError(t, g.MarkFeedback("opt", "env"))
		require.NoError(t, g.Validate())

		plan, err := g.Plan()
		require.NoError(t, err)
		assert.Equal(t, []string{"env", "dec", "opt"}, plan.Order)
	})
}

func positions(order []string) map[string]int {
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	return pos
}
