// Package client implements the spec's Client Scheduler: a
// single-threaded per-client worker that drains cleanup work, ready
// transactions, and ready periodic-I/O in that priority order, woken by
// trigger completions, fence signals, timer ticks, and bus-manager
// dispatch.
package client

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/periodic"
	"github.com/tbalden/google-modules-lwis/transaction"
)

// TxnRunner and PeriodicRunner execute the two kinds of ready work a
// Client drains. transaction.Table and periodic.Engine satisfy them
// respectively; they exist so tests can substitute a fake without
// dragging in real backends.
type TxnRunner interface {
	Execute(ctx context.Context, txn *transaction.Transaction) error
}

type PeriodicRunner interface {
	Execute(ctx context.Context, item *periodic.Item) error
}

// Config wires a Client to its collaborators.
type Config struct {
	ClientID string
	// DeviceID is the device this client session is opened against. It
	// is empty for a client with no single owning device, and is
	// reported back through DeviceID() so a busmanager.Manager can drop
	// this client's queued entry once that device disconnects.
	DeviceID string
	Log      rlog.Logger
	Txns     TxnRunner
	Periodic PeriodicRunner

	// BusNotify, if set, is called whenever this client transitions from
	// empty to non-empty so a busmanager.Manager can enqueue it; nil for
	// clients with no shared-bus devices (e.g. DPM-only clients).
	BusNotify func()

	// BusRunExclusive, if set, runs a func while holding the owning
	// busmanager.Manager's bus mutex — the same mutex drainOne holds
	// across a Dispatch call. Close's final drain of any work left in
	// the queue routes through this so it cannot interleave with that
	// bus's normal dispatch of some other client. Must be set whenever
	// BusNotify is.
	BusRunExclusive func(fn func())
}

// Client is one client's work queue and its single draining worker
// goroutine, matching spec §4.G.
type Client struct {
	id           string
	deviceID     string
	log          rlog.Logger
	txns         TxnRunner
	periodic     PeriodicRunner
	busNotify    func()
	busExclusive func(fn func())

	mu    sync.Mutex // guards queue, kept ordered by workKind; held briefly, never across Execute
	queue []workItem

	// execMu is the "per-client mutex held across a single transaction's
	// execution" from spec §4.G, so a concurrent Cancel sees a consistent
	// Running/Cancelled transition.
	execMu sync.Mutex

	wake chan struct{}

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	workers    sync.WaitGroup
}

func New(cfg Config) *Client {
	log := cfg.Log
	if log == nil {
		log = rlog.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		id:           cfg.ClientID,
		deviceID:     cfg.DeviceID,
		log:          log,
		txns:         cfg.Txns,
		periodic:     cfg.Periodic,
		busNotify:    cfg.BusNotify,
		busExclusive: cfg.BusRunExclusive,
		wake:         make(chan struct{}, 1),
		cancelCtx:    ctx,
		cancelFunc:   cancel,
	}
	c.workers.Add(1)
	goutils.ManagedGo(c.drainLoop, c.workers.Done)
	return c
}

// ID returns the client identifier this scheduler was created for.
func (c *Client) ID() string { return c.id }

// DeviceID returns the device this scheduler was opened against, or ""
// if it has no single owning device.
func (c *Client) DeviceID() string { return c.deviceID }

// SetRunners binds the transaction and periodic-I/O runners once they
// exist. transaction.Table and periodic.Engine both need this Client's
// NotifyTransactionReady/NotifyPeriodicReady callbacks at their own
// construction time, so the two sides are wired together after both
// are built rather than in one constructor call.
func (c *Client) SetRunners(txns TxnRunner, pio PeriodicRunner) {
	c.txns = txns
	c.periodic = pio
}

// push enqueues item and wakes the right consumer. A client with a
// busNotify callback has at least one device on a shared I²C bus, so
// per spec §4.H that bus manager — not this client's own goroutine — is
// the execution driver: it calls Dispatch while holding the bus mutex.
// A client with no shared-bus devices (e.g. DPM-only) drains itself.
func (c *Client) push(item workItem) {
	c.mu.Lock()
	wasEmpty := len(c.queue) == 0
	// Insert after every queued item of the same or higher priority, so
	// the queue stays ordered by kind and by submit order within a kind.
	i := len(c.queue)
	for i > 0 && c.queue[i-1].kind > item.kind {
		i--
	}
	c.queue = append(c.queue, workItem{})
	copy(c.queue[i+1:], c.queue[i:])
	c.queue[i] = item
	c.mu.Unlock()

	if c.busNotify != nil {
		if wasEmpty {
			c.busNotify()
		}
		return
	}
	c.signal()
}

func (c *Client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// NotifyTransactionReady is the trigger-engine/fence-signal wakeup path
// (spec §4.G (a) and (b)): onReady handed to transaction.Table.
func (c *Client) NotifyTransactionReady(txn *transaction.Transaction) {
	c.push(workItem{kind: transactionWork, txn: txn})
}

// NotifyPeriodicReady is the timer-callback wakeup path (spec §4.G
// (c)): onReady handed to periodic.Engine.
func (c *Client) NotifyPeriodicReady(items []*periodic.Item) {
	c.push(workItem{kind: periodicWork, periodic: items})
}

// NotifyCleanup enqueues cleanup work (fence-teardown, error-path
// finalization) ahead of any pending transaction or periodic work.
func (c *Client) NotifyCleanup(fn func()) {
	c.push(workItem{kind: cleanupWork, cleanup: fn})
}

// Dispatch is the bus-manager wakeup path (spec §4.G (d) / §4.H
// Drain): run once, synchronously, against the single highest-priority
// ready item, then return so the bus manager can release its mutex and
// move to the next client. Returns false if the queue was empty.
func (c *Client) Dispatch(ctx context.Context) bool {
	item, ok := c.pop()
	if !ok {
		return false
	}
	c.run(ctx, item)
	return true
}

func (c *Client) pop() (workItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return workItem{}, false
	}
	item := c.queue[0]
	c.queue = c.queue[1:]
	return item, true
}

// drainLoop is the single-threaded worker: blocks on wake, then drains
// the queue to empty before blocking again, so a burst of wakeups only
// costs one pass.
func (c *Client) drainLoop() {
	for {
		select {
		case <-c.cancelCtx.Done():
			c.drainRemaining()
			return
		case <-c.wake:
			for {
				item, ok := c.pop()
				if !ok {
					break
				}
				c.run(c.cancelCtx, item)
			}
		}
	}
}

// drainRemaining runs whatever is left in the queue after the drain
// loop has been cancelled. For a bus-gated client this must still take
// the bus mutex, exactly as a normal Dispatch call would, so this final
// run cannot interleave with drainOne's dispatch of some other client
// sharing the same bus (spec §8's bus-serialization invariant holds
// through shutdown, not just steady state).
func (c *Client) drainRemaining() {
	for {
		item, ok := c.pop()
		if !ok {
			return
		}
		if c.busExclusive != nil {
			c.busExclusive(func() { c.run(context.Background(), item) })
		} else {
			c.run(context.Background(), item)
		}
	}
}

func (c *Client) run(ctx context.Context, item workItem) {
	switch item.kind {
	case cleanupWork:
		if item.cleanup != nil {
			item.cleanup()
		}
	case transactionWork:
		c.execMu.Lock()
		if err := c.txns.Execute(ctx, item.txn); err != nil {
			c.log.Debugw("transaction execute failed", "client", c.id, "txn", item.txn.ID, "err", err)
		}
		c.execMu.Unlock()
	case periodicWork:
		c.execMu.Lock()
		var errs error
		for _, it := range item.periodic {
			errs = multierr.Append(errs, c.periodic.Execute(ctx, it))
		}
		c.execMu.Unlock()
		if errs != nil {
			c.log.Debugw("periodic execute failed", "client", c.id, "err", errs)
		}
	}
}

// Pending reports whether this client has any queued work, used by
// busmanager.Manager to decide whether to re-enqueue after a Dispatch.
func (c *Client) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue) > 0
}

// Close stops the drain loop after finishing any work already queued.
func (c *Client) Close() {
	c.cancelFunc()
	c.workers.Wait()
}
