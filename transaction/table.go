package transaction

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/atomic"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/eventbus"
	"github.com/tbalden/google-modules-lwis/fence"
	"github.com/tbalden/google-modules-lwis/internal/debugstats"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/ioentry"
	"github.com/tbalden/google-modules-lwis/registerio"
	"github.com/tbalden/google-modules-lwis/trigger"
)

// Table is one client's transaction table: the id generator, the
// trigger-event bucket (via trigger.Engine), and the map from id to the
// strong Transaction reference the spec says only the client owns.
type Table struct {
	clientID string
	log      rlog.Logger

	engine        *trigger.Engine
	fenceRegistry *fence.Registry
	executor      *ioentry.Executor
	backend       registerio.Backend // nil for DPM-like virtual devices
	deviceBus     *eventbus.DeviceBus
	clientBus     *eventbus.ClientBus
	stats         *debugstats.Counters

	// onReady is called exactly once per transaction, the moment it
	// becomes ready to run, so the owning client.Client can push it onto
	// its process queue. It must not block.
	onReady func(*Transaction)

	nextID atomic.Uint64

	mu           sync.Mutex
	byID         map[uint64]*Transaction
	byTriggerKey map[uint64]uint64 // first EventNode id -> txn id, for Replace
}

// Config wires a Table to the collaborators it needs; backend may be
// nil (DPM/virtual devices reject every Submit).
type Config struct {
	ClientID      string
	Log           rlog.Logger
	Engine        *trigger.Engine
	FenceRegistry *fence.Registry
	Executor      *ioentry.Executor
	Backend       registerio.Backend
	DeviceBus     *eventbus.DeviceBus
	ClientBus     *eventbus.ClientBus
	Stats         *debugstats.Counters
	OnReady       func(*Transaction)
}

func NewTable(cfg Config) *Table {
	log := cfg.Log
	if log == nil {
		log = rlog.NewNop()
	}
	return &Table{
		clientID:      cfg.ClientID,
		log:           log,
		engine:        cfg.Engine,
		fenceRegistry: cfg.FenceRegistry,
		executor:      cfg.Executor,
		backend:       cfg.Backend,
		deviceBus:     cfg.DeviceBus,
		clientBus:     cfg.ClientBus,
		stats:         cfg.Stats,
		onReady:       cfg.OnReady,
		byID:          make(map[uint64]*Transaction),
		byTriggerKey:  make(map[uint64]uint64),
	}
}

func firstEventNodeID(cond trigger.Condition) (uint64, bool) {
	for _, n := range cond.Nodes {
		if n.Kind == trigger.EventNode {
			return n.EventID, true
		}
	}
	return 0, false
}

// Submit implements spec §4.E's Submit: reject virtual-only devices,
// deep-copy batch buffers, parse the trigger condition, and either push
// the transaction straight onto the ready path (NONE / already decided)
// or let the trigger engine wake it later.
func (t *Table) Submit(info Info) (id uint64, createdFDs []int64, err error) {
	if t.backend == nil {
		return InvalidID, nil, errcode.New("transaction.Submit", errcode.NotSupported)
	}

	info.Entries = deepCopyEntries(info.Entries)

	id = t.nextID.Inc()
	txn := newTransaction(id, t.clientID, info)

	t.mu.Lock()
	t.byID[id] = txn
	if key, ok := firstEventNodeID(info.Trigger); ok {
		t.byTriggerKey[key] = id
	}
	t.mu.Unlock()
	txn.setState(Waiting)

	createdFDs, err = t.engine.Parse(id, &txn.Info.Trigger, t.fenceRegistry, func(r trigger.Result) {
		t.onTriggerResult(txn, r)
	})
	if err != nil {
		t.remove(id)
		return InvalidID, nil, err
	}
	if t.stats != nil {
		t.stats.TransactionSubmitted()
	}
	return id, createdFDs, nil
}

func (t *Table) onTriggerResult(txn *Transaction, r trigger.Result) {
	switch r.Outcome {
	case trigger.Ready:
		txn.setState(Queued)
		if t.onReady != nil {
			t.onReady(txn)
		}
	case trigger.Cancel:
		txn.setState(Cancelled)
		t.finishCancelledByFence(txn, r.Status)
		t.remove(txn.ID)
		if t.stats != nil {
			t.stats.TransactionCancelled()
		}
	}
}

// finishCancelledByFence implements spec §7's "transactions cancelled
// by fence-error emit the configured error event with the fence's
// status code".
func (t *Table) finishCancelledByFence(txn *Transaction, status int32) {
	if txn.Info.EmitErrorEventID != 0 && t.deviceBus != nil {
		payload, _ := json.Marshal(outcomePayload{TransactionID: txn.ID, Code: int(status)})
		t.deviceBus.Emit(txn.Info.EmitErrorEventID, payload)
	}
	t.signalCompletionFences(txn, status)
}

// Cancel implements spec §4.E's Cancel. Not-yet-executing transactions
// are unlinked from every bucket and freed with no side effects;
// already-running transactions are marked and the executor observes the
// flag between entries; already-terminal transactions report
// "already completed".
func (t *Table) Cancel(id uint64) error {
	t.mu.Lock()
	txn, ok := t.byID[id]
	t.mu.Unlock()
	if !ok {
		// Ids are issued in increasing order and never reused, so an
		// issued id that is no longer in the table belongs to a
		// transaction that has already terminated.
		if id != InvalidID && id <= t.nextID.Load() {
			return nil
		}
		return errcode.New("transaction.Cancel", errcode.NotFound)
	}

	alreadyTerminal := txn.RequestCancel()
	if alreadyTerminal {
		return nil
	}

	if txn.State() == Waiting {
		t.engine.Cancel(id, t.fenceRegistry)
		txn.setState(Cancelled)
		t.remove(id)
		if t.stats != nil {
			t.stats.TransactionCancelled()
		}
	}
	// If Queued or Running, the cancellation flag is now set; the
	// scheduler/executor will observe it and finish teardown itself.
	return nil
}

// Replace atomically supersedes any existing transaction keyed by the
// same first-event-node id as info's trigger condition before
// submitting the new one, per spec §4.E.
func (t *Table) Replace(info Info) (id uint64, createdFDs []int64, err error) {
	if key, ok := firstEventNodeID(info.Trigger); ok {
		t.mu.Lock()
		oldID, exists := t.byTriggerKey[key]
		t.mu.Unlock()
		if exists {
			_ = t.Cancel(oldID)
		}
	}
	return t.Submit(info)
}

// Execute runs txn's io-entry program and finalizes it, called by the
// client scheduler once a transaction has been dequeued from the
// process queue. It always frees the transaction from the table before
// returning.
func (t *Table) Execute(ctx context.Context, txn *Transaction) error {
	defer t.remove(txn.ID)

	if txn.IsCancelled() {
		txn.setState(Cancelled)
		t.signalCompletionFences(txn, -1)
		if t.stats != nil {
			t.stats.TransactionCancelled()
		}
		return nil
	}

	txn.setState(Running)
	runErr := t.executor.Execute(ctx, t.backend, txn.Info.Entries, ioentry.ExecuteOptions{
		IsCancelled: txn.IsCancelled,
	})

	switch {
	case runErr == ioentry.ErrCancelled:
		txn.setState(Cancelled)
		t.signalCompletionFences(txn, -1)
		if t.stats != nil {
			t.stats.TransactionCancelled()
		}
		return nil
	case runErr != nil:
		txn.setState(Failed)
		t.emitError(txn, runErr)
		t.signalCompletionFences(txn, int32(errcode.CodeOf(runErr)))
		if t.stats != nil {
			t.stats.TransactionFailed()
		}
		return runErr
	default:
		txn.setState(Completed)
		t.emitSuccess(txn)
		t.signalCompletionFences(txn, 0)
		if t.stats != nil {
			t.stats.TransactionCompleted()
		}
		return nil
	}
}

func (t *Table) emitSuccess(txn *Transaction) {
	if txn.Info.EmitSuccessEventID == 0 || t.deviceBus == nil {
		return
	}
	t.deviceBus.Emit(txn.Info.EmitSuccessEventID, buildPayload(txn.ID, nil, txn.Info.Entries))
}

// emitError implements spec §4.E's "on error, emit emit_error_event_id
// and push the transaction info to the client's error queue": the
// device-wide Emit fans out to every registered client's ClientBus,
// landing in that client's error queue for any client (including this
// one) that has EmitErrorEventID enabled with the error flag.
func (t *Table) emitError(txn *Transaction, runErr error) {
	if t.deviceBus == nil || txn.Info.EmitErrorEventID == 0 {
		return
	}
	t.deviceBus.Emit(txn.Info.EmitErrorEventID, buildPayload(txn.ID, runErr, txn.Info.Entries))
}

func (t *Table) signalCompletionFences(txn *Transaction, status int32) {
	for _, fd := range txn.CompletionFenceFDs {
		f, err := t.fenceRegistry.Lookup(fd)
		if err != nil {
			continue
		}
		_ = f.Signal(status)
	}
}

func (t *Table) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byID, id)
	for k, v := range t.byTriggerKey {
		if v == id {
			delete(t.byTriggerKey, k)
		}
	}
}

// Lookup returns the transaction by id, for tests and diagnostics.
func (t *Table) Lookup(id uint64) (*Transaction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	txn, ok := t.byID[id]
	return txn, ok
}

func deepCopyEntries(in []*ioentry.Entry) []*ioentry.Entry {
	out := make([]*ioentry.Entry, len(in))
	for i, e := range in {
		cp := *e
		if e.Buf != nil {
			cp.Buf = append([]byte(nil), e.Buf...)
		}
		out[i] = &cp
	}
	return out
}
