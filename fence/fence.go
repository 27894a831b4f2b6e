// Package fence implements the shareable, signalable status handle from
// the spec's Fence component: multiple transactions across multiple
// clients can wait on one fence, and a single signal wakes all of them.
// It is the Go analogue of LWIS's lwis_fence.c, which backs a fence with
// an anonymous inode fd, a status int, and a wait queue; here the fd is
// a plain integer handed out by a Registry and the wait queue is a
// closed-on-signal channel.
package fence

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
)

// Outcome is the result AddTxn and the trigger engine use to tell
// "still pending", "ready to run" and "ready to cancel" apart —
// deliberately not a bool, so the trigger engine can't conflate the
// last two.
type Outcome int

const (
	Pending Outcome = iota
	ReadyOK
	ReadyCancel
)

// Notifier is how a fence tells the owner of a pending transaction that
// the fence it was waiting on has signaled. The trigger engine
// implements this and registers itself via AddTxn so that fence need
// not import trigger or transaction (which would cycle).
type Notifier interface {
	FenceSignaled(fd int64, clientID string, txnIDs []uint64, status int32)
}

type bucket struct {
	notifier Notifier
	txnIDs   []uint64
}

// Fence is a reference-counted, lock-guarded signal handle.
type Fence struct {
	FD int64

	log rlog.Logger

	mu       sync.Mutex
	signaled bool
	status   int32
	buckets  map[string]*bucket
	waitCh   chan struct{}

	refs atomic.Int32
}

func newFence(fd int64, log rlog.Logger) *Fence {
	return &Fence{
		FD:      fd,
		log:     log,
		buckets: make(map[string]*bucket),
		waitCh:  make(chan struct{}),
		refs:    *atomic.NewInt32(1),
	}
}

// Status returns whether the fence has signaled yet and, if so, with
// what status code (0 == ok, non-zero == error code).
func (f *Fence) Status() (signaled bool, status int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signaled, f.status
}

// Signal atomically transitions the fence from unsignaled to status.
// Once signaled, status never changes again (spec §8 invariant).
// Signaling an already-signaled fence returns an AlreadySignaled error.
func (f *Fence) Signal(status int32) error {
	f.mu.Lock()
	if f.signaled {
		f.mu.Unlock()
		return errcode.New("fence.Signal", errcode.AlreadySignaled)
	}
	f.signaled = true
	f.status = status
	pending := f.buckets
	f.buckets = nil
	close(f.waitCh)
	f.mu.Unlock()

	for clientID, b := range pending {
		b.notifier.FenceSignaled(f.FD, clientID, b.txnIDs, status)
	}
	return nil
}

// AddTxn registers txnID (owned by clientID) against this fence. If the
// fence is already signaled, the caller gets back the outcome
// immediately instead of being queued, matching the spec's
// AlreadySignaledOk/Err contract.
func (f *Fence) AddTxn(clientID string, txnID uint64, notifier Notifier) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.signaled {
		if f.status == 0 {
			return ReadyOK
		}
		return ReadyCancel
	}

	b, ok := f.buckets[clientID]
	if !ok {
		b = &bucket{notifier: notifier}
		f.buckets[clientID] = b
	}
	b.txnIDs = append(b.txnIDs, txnID)
	return Pending
}

// RemoveTxn unregisters txnID from clientID's bucket, used when a
// transaction is cancelled before its fences signal.
func (f *Fence) RemoveTxn(clientID string, txnID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buckets[clientID]
	if !ok {
		return
	}
	for i, id := range b.txnIDs {
		if id == txnID {
			b.txnIDs = append(b.txnIDs[:i], b.txnIDs[i+1:]...)
			break
		}
	}
	if len(b.txnIDs) == 0 {
		delete(f.buckets, clientID)
	}
}

// Readable reports POLLIN-equivalent readiness: the fence has signaled.
func (f *Fence) Readable() bool {
	signaled, _ := f.Status()
	return signaled
}

// Wait blocks until the fence signals or ctx is cancelled.
func (f *Fence) Wait(ctx context.Context) error {
	f.mu.Lock()
	ch := f.waitCh
	f.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ref increments the fd reference count (another client descriptor-duped it).
func (f *Fence) Ref() {
	f.refs.Inc()
}

// Unref drops a reference; on the last drop, a fence that was never
// signaled is logged as a client-side bug, matching lwis_fence_release's
// dev_err on release-while-unsignaled.
func (f *Fence) Unref() {
	if f.refs.Dec() > 0 {
		return
	}
	if signaled, _ := f.Status(); !signaled {
		f.log.Warnw("fence released while still unsignaled", "fd", f.FD)
		// A release while unsignaled still has to wake anyone waiting.
		f.mu.Lock()
		if !f.signaled {
			close(f.waitCh)
		}
		f.mu.Unlock()
	}
}
