// Package periodic implements the spec's Periodic-I/O engine: a
// self-resubmitting transaction driven by a per-interval timer, with
// per-client work queues and per-interval batch semantics — the Go
// analogue of an hrtimer keyed by period.
package periodic

import (
	"sync"
	"time"

	"github.com/tbalden/google-modules-lwis/ioentry"
)

// Item is one periodic-I/O registration: the same entry-list shape as a
// transaction, plus a period and the timer bookkeeping from spec §3.
type Item struct {
	ID       uint64
	ClientID string

	Entries            []*ioentry.Entry
	Period             time.Duration
	EmitSuccessEventID uint64
	EmitErrorEventID   uint64

	mu           sync.Mutex
	active       bool
	nextDeadline time.Time
}

func (it *Item) isActive() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.active
}

func (it *Item) deactivate() {
	it.mu.Lock()
	it.active = false
	it.mu.Unlock()
}

// IsCancelled implements ioentry.CancelFunc so the executor stops a
// batch mid-flight once Cancel has deactivated the item.
func (it *Item) IsCancelled() bool { return !it.isActive() }
