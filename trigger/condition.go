// Package trigger implements the boolean trigger-condition engine from
// the spec: AND/OR/NONE combinations of event-counter and fence
// predicates that decide when a transaction becomes ready to run (or,
// for AND conditions depending on a fence, ready to cancel).
package trigger

import "github.com/tbalden/google-modules-lwis/errcode"

// Operator is the boolean combinator over a condition's nodes.
type Operator int

const (
	AND Operator = iota
	OR
	NONE
)

// NMax bounds the number of nodes a single trigger condition may carry,
// matching the spec's num_nodes <= N_MAX invariant.
const NMax = 16

// NodeKind discriminates a TriggerNode's variant.
type NodeKind int

const (
	EventNode NodeKind = iota
	FenceNode
	FencePlaceholderNode
)

// Node is one predicate in a Condition. EventID/Counter are meaningful
// for EventNode; FenceFD is meaningful for FenceNode (and is filled in
// by Parse for FencePlaceholderNode, which then behaves like FenceNode).
type Node struct {
	Kind    NodeKind
	EventID uint64
	Counter uint64
	FenceFD int64
}

// Condition is the spec's TriggerCondition: {operator, nodes}.
type Condition struct {
	Operator Operator
	Nodes    []Node
}

// Validate enforces the num_nodes <= N_MAX invariant.
func (c *Condition) Validate() error {
	if len(c.Nodes) > NMax {
		return errcode.New("trigger.Condition.Validate", errcode.InvalidArg)
	}
	return nil
}

// Outcome is a condition's result: still pending, ready to run, or
// ready to cancel. "Ready to run" and "ready to cancel" are never
// collapsed into one bool.
type Outcome int

const (
	Pending Outcome = iota
	Ready
	Cancel
)

// Result pairs an Outcome with the cancelling fence's status code, when
// Outcome == Cancel.
type Result struct {
	Outcome Outcome
	Status  int32
}
