package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode(t *testing.T) {
	t.Run("adds nodes in insertion order", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.AddNode(NodeTypeEnvironment, "env", map[string]any{"sandbox": "stub"}))
		require.NoError(t, g.AddNode(NodeTypeDecision, "dec", nil))

		nodes := g.Nodes()
		require.Len(t, nodes, 2)
		assert.Equal(t, "env", nodes[0].Name)
		assert.Equal(t, "dec", nodes[1].Name)
	})

	t.Run("duplicate name fails immediately", func(t *testing.T) {
		g := NewGraph()
		require.NoError(t, g.AddNode(NodeTypeCustom, "a", nil))

		err := g.AddNode(NodeTypeDecision, "a", nil)
		var dupErr *DuplicateNodeError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "a", dupErr.Name)
		assert.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, 1, g.Len())
	})

	t.Run("unknown option is rejected at add time", func(t *testing.T) {
		g := NewGraph()
		err := g.AddNode(NodeTypeDecision, "dec", map[string]any{"temperatur": 0.7})
		var optErr *UnknownOptionError
		require.ErrorAs(t, err, &optErr)
		assert.Equal(t, "temperatur", optErr.Option)
		assert.Equal(t, 0, g.Len())
	})

	t.Run("custom node config is opaque", func(t *testing.T) {
		g := NewGraph()
		assert.NoError(t, g.AddNode(NodeTypeCustom, "c", map[string]any{"anything": true}))
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		g := NewGraph()
		err := g.AddNode(NodeType("robot"), "r", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAddEdge(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(NodeTypeCustom, "a", nil))
	require.NoError(t, g.AddNode(NodeTypeCustom, "b", nil))

	t.Run("success", func(t *testing.T) {
		require.NoError(t, g.AddEdge("a", "b"))
		edges := g.Edges()
		require.Len(t, edges, 1)
		assert.Equal(t, "a", edges[0].From)
		assert.Equal(t, "b", edges[0].To)
		assert.False(t, edges[0].Feedback)
	})

	t.Run("dangling endpoints", func(t *testing.T) {
		var dangling *DanglingEdgeError

		err := g.AddEdge("dne", "a")
		require.ErrorAs(t, err, &dangling)
		assert.Equal(t, "dne", dangling.Missing)

		err = g.AddEdge("a", "dne")
		require.ErrorAs(t, err, &dangling)
		assert.Equal(t, "dne", dangling.Missing)
	})

	t.Run("self loop", func(t *testing.T) {
		var selfLoop *SelfLoopError
		err := g.AddEdge("a", "a")
		require.ErrorAs(t, err, &selfLoop)
		assert.Equal(t, "a", selfLoop.Node)
	})
}

func TestMarkFeedback(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddNode(NodeTypeCustom, "a", nil))
	require.NoError(t, g.AddNode(NodeTypeCustom, "b", nil))
	require.NoError(t, g.AddEdge("a", "b"))

	t.Run("marks an existing edge", func(t *testing.T) {
		require.NoError(t, g.MarkFeedback("a", "b"))
		require.Len(t, g.FeedbackEdges(), 1)
	})

	t.Run("unknown edge fails", func(t *testing.T) {
		var unknown *UnknownEdgeError
		err := g.MarkFeedback("b", "a")
		assert.ErrorAs(t, err, &unknown)
	})
}

func TestValidate(t *testing.T) {
	t.Run("empty graph is valid", func(t *testing.T) {
		assert.NoError(t, NewGraph().Validate())
	})

	t.Run("dag is valid", func(t *testing.T) {
		g := diamond(t)
		assert.NoError(t, g.Validate())
		assert.True(t, g.Validated())
	})

	t.Run("cycle is reported with its path", func(t *testing.T) {
		g := NewGraph()
		for _, name := range []string{"a", "b", "c"} {
			require.NoError(t, g.AddNode(NodeTypeCustom, name, nil))
		}
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "a"))

		err := g.Validate()
		var cycErr *CyclicGraphError
		require.ErrorAs(t, err, &cycErr)
		assert.ErrorIs(t, err, ErrValidation)
		// The path closes on its first node and names every member.
		require.GreaterOrEqual(t, len(cycErr.Cycle), 4)
		assert.Equal(t, cycErr.Cycle[0], cycErr.Cycle[len(cycErr.Cycle)-1])
		assert.Subset(t, cycErr.Cycle, []string{"a", "b", "c"})
	})

	t.Run("feedback edges are excluded from cycle detection", func(t *testing.T) {
		g := NewGraph()
		for _, name := range []string{"env", "dec", "opt"} {
			require.NoError(t, g.AddNode(NodeTypeCustom, name, nil))
		}
		require.NoError(t, g.AddEdge("env", "dec"))
		require.NoError(t, g.AddEdge("dec", "opt"))
		require.NoError(t, g.AddEdge("opt", "env"))

		var cycErr *CyclicGraphError
		require.ErrorAs(t, g.Validate(), &cycErr)

		require.NoError(t, g.MarkFeedback("opt", "env"))
		assert.NoError(t, g.Validate())
	})

	t.Run("mutation requires revalidation", func(t *testing.T) {
		g := diamond(t)
		require.NoError(t, g.Validate())
		require.True(t, g.Validated())

		require.NoError(t, g.AddNode(NodeTypeCustom, "e", nil))
		assert.False(t, g.Validated())
		assert.NoError(t, g.Validate())
	})
}

func TestErrorTaxonomy(t *testing.T) {
	// All construction errors unwrap to the shared sentinel.
	for _, err := range []error{
		&DuplicateNodeError{Name: "x"},
		&DanglingEdgeError{From: "a", To: "b", Missing: "b"},
		&SelfLoopError{Node: "x"},
		&CyclicGraphError{Cycle: []string{"a", "a"}},
		&UnknownOptionError{Node: "x", Type: NodeTypeDecision, Option: "y"},
		&UnknownEdgeError{From: "a", To: "b"},
	} {
		assert.True(t, errors.Is(err, ErrValidation), "expected %T to wrap ErrValidation", err)
	}
}

// diamond builds the A->B, A->C, B->D, C->D graph used across tests.
func diamond(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, g.AddNode(NodeTypeCustom, name, nil))
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "c"))
	require.NoError(t, g.AddEdge("b", "d"))
	require.NoError(t, g.AddEdge("c", "d"))
	return g
}
