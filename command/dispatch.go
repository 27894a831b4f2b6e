package command

import (
	"context"
	"time"

	"github.com/tbalden/google-modules-lwis/device"
	"github.com/tbalden/google-modules-lwis/dmabuffer"
	"github.com/tbalden/google-modules-lwis/dpm"
	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/eventbus"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/ioentry"
	"github.com/tbalden/google-modules-lwis/periodic"
	"github.com/tbalden/google-modules-lwis/transaction"
)

// Dispatcher routes one client's command packets to the components
// that own each body type. One Dispatcher belongs to exactly one
// client, matching the "per-client" scope of spec §6's command
// channel.
type Dispatcher struct {
	log rlog.Logger

	clientID  string
	device    *device.Device
	clientBus *eventbus.ClientBus
	executor  *ioentry.Executor
	txns      *transaction.Table
	periodic  *periodic.Engine
	buffers   dmabuffer.Table
	dpmCtl    dpm.Controller

	startedAt time.Time
}

// Config wires a Dispatcher to one client's full collaborator set.
type Config struct {
	ClientID  string
	Log       rlog.Logger
	Device    *device.Device
	ClientBus *eventbus.ClientBus
	Executor  *ioentry.Executor
	Txns      *transaction.Table
	Periodic  *periodic.Engine
	Buffers   dmabuffer.Table
	DPM       dpm.Controller
	StartedAt time.Time
}

func NewDispatcher(cfg Config) *Dispatcher {
	log := cfg.Log
	if log == nil {
		log = rlog.NewNop()
	}
	return &Dispatcher{
		log:       log,
		clientID:  cfg.ClientID,
		device:    cfg.Device,
		clientBus: cfg.ClientBus,
		executor:  cfg.Executor,
		txns:      cfg.Txns,
		periodic:  cfg.Periodic,
		buffers:   cfg.Buffers,
		dpmCtl:    cfg.DPM,
		startedAt: cfg.StartedAt,
	}
}

// Dispatch walks head via Next, handling one packet at a time. Per spec
// §7's local-recovery rule, a handler failure is written into that
// packet's RetCode and the walk continues; Dispatch itself only returns
// an error for a failed TransactionSubmit or TransactionReplace (for
// example a trigger-parse failure or a bad fence fd), relaying the first
// such error after finishing the walk.
func (d *Dispatcher) Dispatch(ctx context.Context, head *Packet) error {
	var firstSurfaced error
	for p := head; p != nil; p = p.Next {
		err := d.handle(ctx, p)
		p.RetCode = errcode.CodeOf(err)
		if err != nil && firstSurfaced == nil && surfaces(p.CmdID) {
			firstSurfaced = err
		}
	}
	return firstSurfaced
}

// surfaces reports whether cmd's failures should propagate out of
// Dispatch rather than only being recorded in RetCode, per spec §7's
// distinction between local recovery and surfaced errors.
func surfaces(cmd CmdID) bool {
	switch cmd {
	case CmdTransactionSubmit, CmdTransactionReplace:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) handle(ctx context.Context, p *Packet) error {
	switch b := p.Body.(type) {
	case *EchoBody:
		b.Out = append([]byte(nil), b.Msg...)
		if b.KernelLog {
			d.log.Infow("echo", "client", d.clientID, "msg", string(b.Msg))
		}
		return nil

	case *TimeQueryBody:
		b.Out = time.Since(d.startedAt)
		return nil

	case *GetDeviceInfoBody:
		return d.getDeviceInfo(b)

	case *DeviceEnableBody:
		return d.device.Enable(d.clientID)

	case *DeviceDisableBody:
		return d.deviceDisable()

	case *DeviceSuspendBody:
		return d.device.Suspend()

	case *DeviceResumeBody:
		return d.device.Resume()

	case *DeviceResetBody:
		return d.deviceReset(ctx, b)

	case *DmaBufferEnrollBody:
		h, err := d.buffers.Enroll(b.FD)
		b.Out = h
		return err

	case *DmaBufferDisenrollBody:
		return d.buffers.Disenroll(b.Handle)

	case *DmaBufferAllocBody:
		h, err := d.buffers.Alloc(b.Size)
		b.Out = h
		return err

	case *DmaBufferFreeBody:
		return d.buffers.Free(b.Handle)

	case *DmaBufferCpuAccessBody:
		buf, err := d.buffers.CpuAccess(b.Handle)
		b.Out = buf
		return err

	case *RegIoBody:
		return d.executor.Execute(ctx, d.device.Backend, b.Entries, ioentry.ExecuteOptions{})

	case *EventControlGetBody:
		b.Out = d.clientBus.ControlGet(b.EventID)
		return nil

	case *EventControlSetBody:
		d.clientBus.ControlSet(b.Updates)
		return nil

	case *EventDequeueBody:
		rec, required, popped, err := d.clientBus.Dequeue(b.Capacity)
		b.Out, b.RequiredSize, b.Popped = rec, required, popped
		return err

	case *TransactionSubmitBody:
		id, fds, err := d.txns.Submit(b.Info)
		b.Out, b.CreatedFDs = id, fds
		return err

	case *TransactionCancelBody:
		return d.txns.Cancel(b.ID)

	case *TransactionReplaceBody:
		id, fds, err := d.txns.Replace(b.Info)
		b.Out, b.CreatedFDs = id, fds
		return err

	case *PeriodicIoSubmitBody:
		id, err := d.periodic.Submit(b.Entries, b.Period, b.EmitSuccessEventID, b.EmitErrorEventID)
		b.Out = id
		return err

	case *PeriodicIoCancelBody:
		return d.periodic.Cancel(b.ID)

	case *DpmClkUpdateBody:
		return d.dpmCtl.ClkUpdate(b.Settings)

	case *DpmQosUpdateBody:
		return d.dpmCtl.QosUpdate(b.Reqs)

	case *DpmGetClockBody:
		s, err := d.dpmCtl.GetClock(b.DeviceID)
		b.Out = s
		return err

	default:
		return errcode.New("command.Dispatch", errcode.InvalidArg)
	}
}

// getDeviceInfo reports device identity plus the debug counters packed
// into Regs, in the fixed order Submitted, Completed, Cancelled,
// Failed, EventsEmitted, BusQueueDepthHighWater. There is no dedicated
// stats command; this reuses GetDeviceInfo's existing extension point
// instead of adding a new one.
func (d *Dispatcher) getDeviceInfo(b *GetDeviceInfoBody) error {
	snap := d.device.Stats.Snapshot()
	b.Out = DeviceInfo{
		ID:   d.device.ID,
		Type: d.device.Kind.String(),
		Name: d.device.Name,
		Regs: []uint64{
			uint64(snap.TransactionsSubmitted),
			uint64(snap.TransactionsCompleted),
			uint64(snap.TransactionsCancelled),
			uint64(snap.TransactionsFailed),
			uint64(snap.EventsEmitted),
			uint64(snap.BusQueueDepthHighWater),
		},
	}
	return nil
}

// deviceDisable implements spec §4.F's flush-on-disable rule (the
// client waits for any in-flight periodic tick before powering down)
// and spec §4.B's clear-on-disable rule (this client's queues and event
// flags are dropped, and any event no longer wanted by any client has
// its device-level counter reset).
func (d *Dispatcher) deviceDisable() error {
	d.periodic.Flush()
	if err := d.device.Disable(d.clientID); err != nil {
		return err
	}
	for _, id := range d.clientBus.Clear() {
		d.device.Bus.Disable(id)
	}
	return nil
}

// deviceReset runs entries synchronously only if the device is
// currently enabled, else it warns and skips, per spec §6's
// DeviceReset contract.
func (d *Dispatcher) deviceReset(ctx context.Context, b *DeviceResetBody) error {
	if !d.device.IsEnabled() {
		d.log.Warnw("device reset skipped: device not enabled", "device", d.device.ID)
		return nil
	}
	return d.executor.Execute(ctx, d.device.Backend, b.Entries, ioentry.ExecuteOptions{})
}
