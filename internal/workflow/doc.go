// Package workflow provides the static structure of a SandGraphX workflow:
// nodes, directed edges, feedback edges, validation, and the topological
// execution plan derived from the intra-round edge set.
//
// # Why Feedback Edges Exist
//
// A learning workflow is conceptually cyclic: an environment feeds a decision
// node, the decision feeds a policy optimizer, and the optimizer feeds the
// environment again. A single scheduling pass, however, requires an acyclic
// graph. The package reconciles the two by tagging each edge as either an
// intra-round dependency (must be acyclic, drives the topological plan) or a
// feedback edge (carries the tail node's output into the head node's input of
// the NEXT round). The cycle is unrolled across rounds instead of existing
// inside any one round's static graph.
package workflow
