// Package eventbus implements the spec's per-device event-state table
// and per-client event queues: emitting an event walks the client list
// under the device lock and fans the event out to whichever clients
// have it enabled, with the error queue always taking priority over the
// normal queue on dequeue.
package eventbus

import "time"

// Flags select where an enabled event is delivered for one client.
// The error flag wins over the normal flag when both are set, matching
// the spec's "error flag wins" emission rule.
type Flags uint8

const (
	FlagNormal Flags = 1 << iota
	FlagError
	FlagIRQOnly
)

func (f Flags) enabled() bool { return f != 0 }

// Record is one delivered event, copied out to a client's queue at
// emission time.
type Record struct {
	ID        uint64
	Counter   uint64
	Timestamp time.Time
	Payload   []byte
}

// EmissionHook lets a synchronous observer (the trigger engine) learn
// about an emission as part of the emitting call, before EmitEvent
// returns, matching the spec's "call any registered emission hook"
// requirement.
type EmissionHook interface {
	EventFired(eventID uint64, counter uint64)
}

// EnableHook is called whenever a client's aggregate enable state for
// an event id flips, so the owning device can gate real hardware
// interrupt delivery.
type EnableHook interface {
	EventEnableChanged(eventID uint64, enabled bool)
}
