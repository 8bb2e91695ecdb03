package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is the sentinel wrapped by every graph-construction and
// validation failure, so callers can classify with errors.Is without
// enumerating the concrete types.
var ErrValidation = errors.New("graph validation failed")

// ErrNotValidated is returned by Plan when the graph has been mutated since
// the last successful Validate.
var ErrNotValidated = errors.New("graph must be validated before planning")

// DuplicateNodeError is returned by AddNode when the name is already taken.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node name '%s'", e.Name)
}

func (e *DuplicateNodeError) Unwrap() error { return ErrValidation }

// DanglingEdgeError is returned by AddEdge or MarkFeedback when an endpoint
// does not reference an existing node.
type DanglingEdgeError struct {
	From, To string
	// Missing names the endpoint that was not found.
	Missing string
}

func (e *DanglingEdgeError) Error() string {
	return fmt.Sprintf("edge %s -> %s references unknown node '%s'", e.From, e.To, e.Missing)
}

func (e *DanglingEdgeError) Unwrap() error { return ErrValidation }

// SelfLoopError is returned by AddEdge when from and to are the same node.
type SelfLoopError struct {
	Node string
}

func (e *SelfLoopError) Error() string {
	return fmt.Sprintf("self-referential edge not allowed: %s -> %s", e.Node, e.Node)
}

func (e *SelfLoopError) Unwrap() error { return ErrValidation }

// CyclicGraphError is returned by Validate when the intra-round edge set
// contains a cycle. Cycle holds the offending path in traversal order, with
// the first node repeated at the end.
type CyclicGraphError struct {
	Cycle []string
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("cycle detected in intra-round edges: %s", strings.Join(e.Cycle, " -> "))
}

func (e *CyclicGraphError) Unwrap() error { return ErrValidation }

// UnknownOptionError is returned by AddNode when a config key is not part of
// the node type's accepted option set.
type UnknownOptionError struct {
	Node   string
	Type   NodeType
	Option string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown option '%s' for %s node '%s'", e.Option, e.Type, e.Node)
}

func (e *UnknownOptionError) Unwrap() error { return ErrValidation }

// UnknownEdgeError is returned by MarkFeedback when no matching edge exists.
type UnknownEdgeError struct {
	From, To string
}

func (e *UnknownEdgeError) Error() string {
	return fmt.Sprintf("no edge %s -> %s to mark as feedback", e.From, e.To)
}

func (e *UnknownEdgeError) Unwrap() error { return ErrValidation }
