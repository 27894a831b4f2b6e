package client

import (
	"github.com/tbalden/google-modules-lwis/periodic"
	"github.com/tbalden/google-modules-lwis/transaction"
)

// workKind orders the work a Client drains, matching spec §4.G's fixed
// priority: cleanup work first, then ready transactions, then ready
// periodic-I/O, each in submit order within its own kind.
type workKind int

const (
	cleanupWork workKind = iota
	transactionWork
	periodicWork
)

// workItem is the union of everything that can land on a Client's
// drain loop. Exactly one of its payload fields is set, selected by
// kind.
type workItem struct {
	kind workKind

	txn      *transaction.Transaction
	periodic []*periodic.Item
	cleanup  func()
}
