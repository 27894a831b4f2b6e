package trigger

import (
	"sync"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/fence"
)

type weakRecord struct {
	waiter  *Waiter
	nodeIdx int
}

// Engine is one client's trigger-condition subscription table: the
// weak event registrations spec §3 calls "an auxiliary weak-transaction
// list per triggering event", plus the bookkeeping needed to route a
// fence signal back to the right waiter node. One Engine belongs to
// exactly one client.
type Engine struct {
	clientID string

	mu           sync.Mutex
	eventWeak    map[uint64][]weakRecord // eventID -> pending weak records
	byTxn        map[uint64]*Waiter      // txnID -> waiter, for fence notification routing
	byTxnFenceFD map[uint64]map[int64]int // txnID -> fenceFD -> nodeIdx
}

// NewEngine returns an empty trigger engine for clientID.
func NewEngine(clientID string) *Engine {
	return &Engine{
		clientID:     clientID,
		eventWeak:    make(map[uint64][]weakRecord),
		byTxn:        make(map[uint64]*Waiter),
		byTxnFenceFD: make(map[uint64]map[int64]int),
	}
}

// Parse walks cond's nodes exactly as spec §4.D describes: Event nodes
// get a weak registration, FencePlaceholder nodes get a freshly created
// fence whose fd is substituted into the node (and also returned via
// createdFDs, for the caller to surface back to the user), and Fence
// nodes are registered against their existing fence. onResult is
// invoked exactly once with the final Result — possibly synchronously,
// from within Parse itself, if the condition is already decided (NONE,
// or every fence already signaled).
func (e *Engine) Parse(
	txnID uint64,
	cond *Condition,
	registry *fence.Registry,
	onResult func(Result),
) (createdFDs []int64, err error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}

	if cond.Operator == NONE {
		onResult(Result{Outcome: Ready})
		return nil, nil
	}

	w := newWaiter(*cond, onResult)

	e.mu.Lock()
	e.byTxn[txnID] = w
	e.byTxnFenceFD[txnID] = make(map[int64]int)
	e.mu.Unlock()

	for i := range cond.Nodes {
		node := &cond.Nodes[i]
		switch node.Kind {
		case EventNode:
			e.mu.Lock()
			e.eventWeak[node.EventID] = append(e.eventWeak[node.EventID], weakRecord{waiter: w, nodeIdx: i})
			e.mu.Unlock()

		case FencePlaceholderNode:
			f := registry.Create()
			node.FenceFD = f.FD
			node.Kind = FenceNode
			createdFDs = append(createdFDs, f.FD)
			e.registerFenceNode(txnID, f, i)

		case FenceNode:
			f, lookupErr := registry.Lookup(node.FenceFD)
			if lookupErr != nil {
				e.cleanup(txnID)
				return nil, errcode.New("trigger.Parse", errcode.BadFd)
			}
			outcome := f.AddTxn(e.clientID, txnID, e)
			switch outcome {
			case fence.ReadyOK:
				w.MarkFenceFired(i, 0)
			case fence.ReadyCancel:
				_, status := f.Status()
				w.MarkFenceFired(i, status)
			case fence.Pending:
				e.noteFenceNode(txnID, f.FD, i)
			}
		}

		if w.done {
			break
		}
	}

	if w.done {
		// Result was already delivered via onResult inside
		// MarkFenceFired/MarkEventFired above.
		e.cleanup(txnID)
	}
	return createdFDs, nil
}

func (e *Engine) registerFenceNode(txnID uint64, f *fence.Fence, nodeIdx int) {
	outcome := f.AddTxn(e.clientID, txnID, e)
	// A brand new fence is never pre-signaled, but handle it uniformly
	// in case of future reuse.
	e.noteFenceNode(txnID, f.FD, nodeIdx)
	if outcome != fence.Pending {
		e.mu.Lock()
		w := e.byTxn[txnID]
		e.mu.Unlock()
		if w != nil {
			if outcome == fence.ReadyOK {
				w.MarkFenceFired(nodeIdx, 0)
			} else {
				_, status := f.Status()
				w.MarkFenceFired(nodeIdx, status)
			}
		}
	}
}

func (e *Engine) noteFenceNode(txnID uint64, fd int64, nodeIdx int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.byTxnFenceFD[txnID]
	if m == nil {
		m = make(map[int64]int)
		e.byTxnFenceFD[txnID] = m
	}
	m[fd] = nodeIdx
}

// FenceSignaled implements fence.Notifier.
func (e *Engine) FenceSignaled(fd int64, clientID string, txnIDs []uint64, status int32) {
	if clientID != e.clientID {
		return
	}
	for _, txnID := range txnIDs {
		e.mu.Lock()
		w := e.byTxn[txnID]
		nodeIdx, ok := e.byTxnFenceFD[txnID][fd]
		e.mu.Unlock()
		if w == nil || !ok {
			continue
		}
		w.MarkFenceFired(nodeIdx, status)
	}
}

// HandleEvent is called by a Router when the owning device emits
// eventID with the given counter. It finds every weak record matching
// (eventID, counter) — counter 0 on a node means "any" — fires the
// matching waiter node, and frees each matched weak record. Records
// whose counter does not match stay registered for a later emission.
func (e *Engine) HandleEvent(eventID uint64, counter uint64) {
	e.mu.Lock()
	records := e.eventWeak[eventID]
	if len(records) == 0 {
		e.mu.Unlock()
		return
	}
	var remaining []weakRecord
	var matched []weakRecord
	for _, rec := range records {
		node := rec.waiter.nodes[rec.nodeIdx]
		if node.Counter == 0 || node.Counter == counter {
			matched = append(matched, rec)
		} else {
			remaining = append(remaining, rec)
		}
	}
	e.eventWeak[eventID] = remaining
	e.mu.Unlock()

	for _, rec := range matched {
		rec.waiter.MarkEventFired(rec.nodeIdx)
	}
}

// Cancel releases txnID's weak records and fence registrations, used by
// transaction.Table when a still-waiting transaction is cancelled.
func (e *Engine) Cancel(txnID uint64, registry *fence.Registry) {
	e.mu.Lock()
	fds := e.byTxnFenceFD[txnID]
	e.mu.Unlock()
	for fd := range fds {
		if f, err := registry.Lookup(fd); err == nil {
			f.RemoveTxn(e.clientID, txnID)
		}
	}
	for eventID, records := range e.eventWeak {
		filtered := records[:0:0]
		for _, rec := range records {
			found := false
			e.mu.Lock()
			w := e.byTxn[txnID]
			e.mu.Unlock()
			if w != nil && rec.waiter == w {
				found = true
			}
			if !found {
				filtered = append(filtered, rec)
			}
		}
		e.mu.Lock()
		e.eventWeak[eventID] = filtered
		e.mu.Unlock()
	}
	e.cleanup(txnID)
}

func (e *Engine) cleanup(txnID uint64) {
	e.mu.Lock()
	delete(e.byTxn, txnID)
	delete(e.byTxnFenceFD, txnID)
	e.mu.Unlock()
}
