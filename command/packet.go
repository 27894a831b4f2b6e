// Package command implements the spec's per-client command channel: a
// linked list of typed packets walked one at a time from the head,
// each routed to the component that owns its body type, with local
// recovery (write the failure into RetCode, keep walking) matching
// spec §7.
package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/tbalden/google-modules-lwis/dmabuffer"
	"github.com/tbalden/google-modules-lwis/dpm"
	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/eventbus"
	"github.com/tbalden/google-modules-lwis/ioentry"
	"github.com/tbalden/google-modules-lwis/transaction"
)

// CmdID discriminates a Packet's Body type, matching spec §6's
// "header {cmd_id, next, ret_code}".
type CmdID int

const (
	CmdEcho CmdID = iota
	CmdTimeQuery
	CmdGetDeviceInfo
	CmdDeviceEnable
	CmdDeviceDisable
	CmdDeviceReset
	CmdDeviceSuspend
	CmdDeviceResume
	CmdDmaBufferEnroll
	CmdDmaBufferDisenroll
	CmdDmaBufferAlloc
	CmdDmaBufferFree
	CmdDmaBufferCpuAccess
	CmdRegIo
	CmdEventControlGet
	CmdEventControlSet
	CmdEventDequeue
	CmdTransactionSubmit
	CmdTransactionCancel
	CmdTransactionReplace
	CmdPeriodicIoSubmit
	CmdPeriodicIoCancel
	CmdDpmClkUpdate
	CmdDpmQosUpdate
	CmdDpmGetClock
)

// Packet is one command-channel entry. CorrelationID is a new field not
// present in the original ioctl framing this stands in for; it gives
// each packet a stable identity for logging and response matching
// across the in-process dispatch, following roach88-nysm's use of
// google/uuid for request correlation.
type Packet struct {
	CmdID         CmdID
	CorrelationID uuid.UUID
	Next          *Packet
	RetCode       errcode.Code
	Body          any
}

// NewPacket allocates a Packet with a fresh correlation id.
func NewPacket(cmd CmdID, body any) *Packet {
	return &Packet{CmdID: cmd, CorrelationID: uuid.New(), Body: body}
}

// Body shapes, one per CmdID above.

type EchoBody struct {
	Msg       []byte
	KernelLog bool
	Out       []byte // filled by Dispatch
}

type TimeQueryBody struct {
	Out time.Duration // filled by Dispatch: monotonic time since the Dispatcher's Config.StartedAt
}

type GetDeviceInfoBody struct {
	Out DeviceInfo
}

type DeviceInfo struct {
	ID         string
	Type       string
	Name       string
	Clocks     []string
	Regs       []uint64
	WorkerTIDs []string
}

type DeviceEnableBody struct{}
type DeviceDisableBody struct{}
type DeviceSuspendBody struct{}
type DeviceResumeBody struct{}

type DeviceResetBody struct {
	Entries []*ioentry.Entry
}

type DmaBufferEnrollBody struct {
	FD  int64
	Out dmabuffer.Handle
}
type DmaBufferDisenrollBody struct {
	Handle dmabuffer.Handle
}
type DmaBufferAllocBody struct {
	Size int
	Out  dmabuffer.Handle
}
type DmaBufferFreeBody struct {
	Handle dmabuffer.Handle
}
type DmaBufferCpuAccessBody struct {
	Handle dmabuffer.Handle
	Out    []byte
}

type RegIoBody struct {
	Entries []*ioentry.Entry
}

type EventControlGetBody struct {
	EventID uint64
	Out     eventbus.Flags
}
type EventControlSetBody struct {
	Updates []eventbus.FlagUpdate
}
type EventDequeueBody struct {
	Capacity     int
	Out          eventbus.Record
	RequiredSize int
	Popped       bool
}

type TransactionSubmitBody struct {
	Info       transaction.Info
	Out        uint64
	CreatedFDs []int64
}
type TransactionCancelBody struct {
	ID uint64
}
type TransactionReplaceBody struct {
	Info       transaction.Info
	Out        uint64
	CreatedFDs []int64
}

type PeriodicIoSubmitBody struct {
	Entries            []*ioentry.Entry
	Period             time.Duration
	EmitSuccessEventID uint64
	EmitErrorEventID   uint64
	Out                uint64
}
type PeriodicIoCancelBody struct {
	ID uint64
}

type DpmClkUpdateBody struct {
	Settings []dpm.ClockSetting
}
type DpmQosUpdateBody struct {
	Reqs []dpm.QosRequest
}
type DpmGetClockBody struct {
	DeviceID string
	Out      dpm.ClockSetting
}
