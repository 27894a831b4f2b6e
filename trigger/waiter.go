package trigger

import "sync"

// Waiter tracks one transaction's progress towards readiness. It is
// created by Parse and fed firings through MarkEventFired/MarkFenceFired
// as the engine observes them (Parse itself feeds already-signaled
// fences); the first firing that resolves the condition invokes
// onResult exactly once.
type Waiter struct {
	mu       sync.Mutex
	op       Operator
	nodes    []Node
	fired    []bool
	signaled int // count of nodes that have fired with "success"
	terminal int // count of fence nodes that have reached a terminal state (success or error)
	done     bool
	onResult func(Result)
}

func newWaiter(cond Condition, onResult func(Result)) *Waiter {
	return &Waiter{
		op:       cond.Operator,
		nodes:    append([]Node(nil), cond.Nodes...),
		fired:    make([]bool, len(cond.Nodes)),
		onResult: onResult,
	}
}

func (w *Waiter) resolve(r Result) {
	if w.done {
		return
	}
	w.done = true
	w.onResult(r)
}

// MarkEventFired is called when the engine observes an emission
// matching nodeIdx's (EventID, Counter). It is a no-op if the waiter
// already resolved or the node already fired (idempotent against the
// at-most-once weak-record removal race).
func (w *Waiter) MarkEventFired(nodeIdx int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done || w.fired[nodeIdx] {
		return
	}
	w.fired[nodeIdx] = true
	w.signaled++

	switch w.op {
	case OR:
		w.resolve(Result{Outcome: Ready})
	case AND:
		if w.signaled == len(w.nodes) {
			w.resolve(Result{Outcome: Ready})
		}
	}
}

// MarkFenceFired is called when the fence bound to nodeIdx signals.
// status == 0 is success; non-zero is an error that immediately cancels
// an AND condition, per spec §4.D.
func (w *Waiter) MarkFenceFired(nodeIdx int, status int32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done || w.fired[nodeIdx] {
		return
	}
	w.fired[nodeIdx] = true
	w.terminal++

	switch w.op {
	case AND:
		if status != 0 {
			w.resolve(Result{Outcome: Cancel, Status: status})
			return
		}
		w.signaled++
		if w.signaled == len(w.nodes) {
			w.resolve(Result{Outcome: Ready})
		}
	case OR:
		if status == 0 {
			w.resolve(Result{Outcome: Ready})
			return
		}
		if w.terminal == len(w.nodes) {
			// every node has reached a terminal state and none succeeded
			w.resolve(Result{Outcome: Cancel, Status: status})
		}
	}
}

// resolveImmediate resolves the waiter with r under its lock, unless it
// has already resolved. Parse does not call it: NONE conditions never
// get a Waiter, and already-signaled fences go through MarkFenceFired.
func (w *Waiter) resolveImmediate(r Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resolve(r)
}
