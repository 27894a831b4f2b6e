package transaction

import (
	"sync"

	"github.com/tbalden/google-modules-lwis/ioentry"
	"github.com/tbalden/google-modules-lwis/trigger"
)

// Info is the caller-supplied shape of a transaction, matching the
// spec's TransactionSubmit{info} command body.
type Info struct {
	Entries            []*ioentry.Entry
	Trigger            trigger.Condition
	EmitSuccessEventID uint64 // 0 means "don't emit"
	EmitErrorEventID   uint64

	// CompletionFenceFDs are existing fences to signal when this
	// transaction terminates. Fences the trigger condition creates via a
	// FencePlaceholderNode are not signaled unless listed here.
	CompletionFenceFDs []int64
}

// InvalidID is returned to the user on submit failure, per spec §6.
const InvalidID uint64 = 0

// Transaction is one instance of deferred work: an io-entry program plus
// trigger and completion metadata. It is owned by its client; the
// client's process queue holds the only strong reference that drives
// execution and eventual cleanup.
type Transaction struct {
	ID       uint64
	ClientID string
	Info     Info

	// CompletionFenceFDs is a copy of Info.CompletionFenceFDs. Fds minted
	// from FencePlaceholder nodes in the trigger condition are not added.
	CompletionFenceFDs []int64

	mu        sync.Mutex
	state     State
	cancelled bool
}

func newTransaction(id uint64, clientID string, info Info) *Transaction {
	return &Transaction{
		ID:                 id,
		ClientID:           clientID,
		Info:               info,
		CompletionFenceFDs: append([]int64(nil), info.CompletionFenceFDs...),
		state:              Created,
	}
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// RequestCancel marks the transaction for cancellation. If it is
// already running, the executor observes this between entries and
// stops; if it already completed, this is a no-op the caller should
// treat as "already completed" per spec §5.
func (t *Transaction) RequestCancel() (alreadyTerminal bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case Completed, Failed, Cancelled:
		return true
	}
	t.cancelled = true
	return false
}

// IsCancelled implements ioentry.CancelFunc.
func (t *Transaction) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}
