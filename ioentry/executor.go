package ioentry

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/registerio"
)

// Executor runs a linear IoEntry program against one device's
// registerio.Backend, matching the walk-and-dispatch loop LWIS's
// lwis_transaction.c process_transaction uses for a device's io_entries.
type Executor struct {
	log rlog.Logger
}

// NewExecutor returns an Executor that logs through log (or a no-op
// logger if log is nil).
func NewExecutor(log rlog.Logger) *Executor {
	if log == nil {
		log = rlog.NewNop()
	}
	return &Executor{log: log}
}

// CancelFunc reports whether the in-flight run should stop before its
// next entry, letting transaction.Table implement "cancel during
// execute completes the current entry and then stops" (spec §5).
type CancelFunc func() bool

// ExecuteOptions carries the pieces of Execute's contract that are
// optional in tests but always supplied by the real scheduler.
type ExecuteOptions struct {
	IsCancelled CancelFunc
}

// ErrCancelled is returned by Execute when IsCancelled reported true
// between entries; any entries already applied remain in effect.
var ErrCancelled = errors.New("ioentry: execution cancelled")

// Execute dispatches entries in order against backend, bracketing the
// run with write/read memory barriers and stopping at the first error
// (the spec's "partial side effects remain" rule — no rollback).
func (x *Executor) Execute(ctx context.Context, backend registerio.Backend, entries []*Entry, opts ExecuteOptions) error {
	if backend == nil {
		return errcode.New("ioentry.Execute", errcode.NotSupported)
	}

	if err := backend.Barrier(ctx, false, true); err != nil {
		return errcode.Wrap("ioentry.Execute.barrier_entry", errcode.Faulted, err)
	}

	for i, e := range entries {
		if opts.IsCancelled != nil && opts.IsCancelled() {
			x.log.Debugw("execution cancelled between entries", "index", i)
			return ErrCancelled
		}
		if err := x.dispatch(ctx, backend, e); err != nil {
			x.log.Debugw("entry failed, stopping with partial effects", "index", i, "tag", e.Tag.String(), "err", err)
			return err
		}
	}

	if err := backend.Barrier(ctx, true, false); err != nil {
		return errcode.Wrap("ioentry.Execute.barrier_exit", errcode.Faulted, err)
	}
	return nil
}

func (x *Executor) dispatch(ctx context.Context, backend registerio.Backend, e *Entry) error {
	switch e.Tag {
	case Read:
		v, err := backend.Read(ctx, e.Offset, e.width())
		if err != nil {
			return errcode.Wrap("ioentry.read", errcode.Faulted, err)
		}
		e.Value = v
		return nil

	case Write:
		if err := backend.Write(ctx, e.Offset, e.width(), e.Value); err != nil {
			return errcode.Wrap("ioentry.write", errcode.Faulted, err)
		}
		return nil

	case Modify:
		cur, err := backend.Read(ctx, e.Offset, e.width())
		if err != nil {
			return errcode.Wrap("ioentry.modify.read", errcode.Faulted, err)
		}
		next := (cur &^ e.Mask) | (e.Value & e.Mask)
		if err := backend.Write(ctx, e.Offset, e.width(), next); err != nil {
			return errcode.Wrap("ioentry.modify.write", errcode.Faulted, err)
		}
		return nil

	case ReadBatch:
		if e.Buf == nil {
			n, ok := CheckAllocSize(int(e.Size), 1)
			if !ok {
				return errcode.New("ioentry.read_batch.alloc", errcode.Overflow)
			}
			e.Buf = make([]byte, n)
		}
		if err := backend.ReadBatch(ctx, e.Offset, e.Buf); err != nil {
			return errcode.Wrap("ioentry.read_batch", errcode.Faulted, err)
		}
		return nil

	case WriteBatch:
		if err := backend.WriteBatch(ctx, e.Offset, e.Buf); err != nil {
			return errcode.Wrap("ioentry.write_batch", errcode.Faulted, err)
		}
		return nil

	case Poll:
		return x.poll(ctx, backend, e)

	case ReadAssert:
		v, err := backend.Read(ctx, e.Offset, e.width())
		if err != nil {
			return errcode.Wrap("ioentry.read_assert.read", errcode.Faulted, err)
		}
		e.Value = v
		if (v & e.Mask) != (e.Expected & e.Mask) {
			return errcode.New("ioentry.read_assert", errcode.Faulted)
		}
		return nil

	default:
		return errcode.New("ioentry.dispatch", errcode.InvalidArg)
	}
}

func (x *Executor) poll(ctx context.Context, backend registerio.Backend, e *Entry) error {
	deadline := time.Now().Add(e.Timeout)
	const pollInterval = 100 * time.Microsecond
	for {
		v, err := backend.Read(ctx, e.Offset, e.width())
		if err != nil {
			return errcode.Wrap("ioentry.poll.read", errcode.Faulted, err)
		}
		e.Value = v
		if (v & e.Mask) == (e.Expected & e.Mask) {
			return nil
		}
		if time.Now().After(deadline) {
			return errcode.New("ioentry.poll", errcode.Timeout)
		}
		select {
		case <-ctx.Done():
			return errcode.Wrap("ioentry.poll", errcode.Timeout, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
