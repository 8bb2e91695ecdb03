// Package config defines the format-agnostic workflow model loaded from
// declarative files. Concrete loaders live in internal/hclconf and
// internal/yamlconf; the app picks one by file extension and consumers never
// see which format the model came from.
package config

import "context"

// Loader is the interface for a format-specific workflow file loader.
type Loader interface {
	// Load reads a workflow definition from path and translates it into
	// the format-agnostic model.
	Load(ctx context.Context, path string) (*Model, error)
}

// Model is the root of a loaded workflow definition.
type Model struct {
	Workflow *Workflow
}

// Workflow describes one workflow: its identity, the round loop, and the
// graph shape.
type Workflow struct {
	Name string
	// Rounds is the number of iterations for iterative mode. Loaders
	// default it to 1.
	Rounds int
	// SinglePass selects one-shot execution; feedback edges are then
	// rejected at validation.
	SinglePass bool
	Nodes      []*Node
	Edges      []*Edge
}

// Node is the declarative form of one workflow node.
type Node struct {
	// Type is the capability type tag: environment, decision,
	// policy_update, or custom.
	Type string
	Name string
	// Config carries the node's static options as plain Go values.
	Config map[string]any
}

// Edge is the declarative form of one directed edge.
type Edge struct {
	From string
	To   string
	// Feedback marks the edge as a round-boundary link.
	Feedback bool
}
