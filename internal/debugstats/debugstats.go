// Package debugstats keeps the per-device diagnostic counters the
// original driver's debug interface exposed, read back over
// GetDeviceInfo's regs[] extension point. Ambient instrumentation, not
// a new feature surface.
package debugstats

import "sync/atomic"

// Counters is one device's monotonically increasing diagnostic
// counters. Zero value is ready to use.
type Counters struct {
	transactionsSubmitted  atomic.Int64
	transactionsCompleted  atomic.Int64
	transactionsCancelled  atomic.Int64
	transactionsFailed     atomic.Int64
	eventsEmitted          atomic.Int64
	busQueueDepthHighWater atomic.Int64
}

func (c *Counters) TransactionSubmitted() { c.transactionsSubmitted.Add(1) }
func (c *Counters) TransactionCompleted() { c.transactionsCompleted.Add(1) }
func (c *Counters) TransactionCancelled() { c.transactionsCancelled.Add(1) }
func (c *Counters) TransactionFailed()    { c.transactionsFailed.Add(1) }
func (c *Counters) EventEmitted()         { c.eventsEmitted.Add(1) }

// ObserveBusQueueDepth records depth as the new high-water mark if it
// exceeds the current one.
func (c *Counters) ObserveBusQueueDepth(depth int64) {
	for {
		cur := c.busQueueDepthHighWater.Load()
		if depth <= cur {
			return
		}
		if c.busQueueDepthHighWater.CompareAndSwap(cur, depth) {
			return
		}
	}
}

// Snapshot is the read-only view returned by GetDeviceInfo.
type Snapshot struct {
	TransactionsSubmitted  int64
	TransactionsCompleted  int64
	TransactionsCancelled  int64
	TransactionsFailed     int64
	EventsEmitted          int64
	BusQueueDepthHighWater int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		TransactionsSubmitted:  c.transactionsSubmitted.Load(),
		TransactionsCompleted:  c.transactionsCompleted.Load(),
		TransactionsCancelled:  c.transactionsCancelled.Load(),
		TransactionsFailed:     c.transactionsFailed.Load(),
		EventsEmitted:          c.eventsEmitted.Load(),
		BusQueueDepthHighWater: c.busQueueDepthHighWater.Load(),
	}
}
