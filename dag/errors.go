// Package dag implements the Kernel's mutable execution graph: nodes,
// directed edges, cycle-guarded mutation, and topological ordering.
package dag

import "errors"

// ErrCycleDetected is returned by AddEdge when inserting the edge would
// create a cycle, and by TopologicalSort when the graph (however it got
// that way) is no longer acyclic.
var ErrCycleDetected = errors.New("dag: cycle detected")

// ErrUnknownNode is returned by AddEdge when either endpoint has not been
// registered with AddNode.
var ErrUnknownNode = errors.New("dag: unknown node")

// ErrEdgeNotFound is returned by RemoveEdge when the edge does not exist.
var ErrEdgeNotFound = errors.New("dag: edge not found")
