package eventbus

import (
	"sync"
	"time"

	"github.com/tbalden/google-modules-lwis/internal/rlog"
)

type deviceEventCounters struct {
	enableCounter int64
	eventCounter  uint64
}

// DeviceBus is the per-device event-state table plus the set of
// registered clients that may observe it.
type DeviceBus struct {
	log rlog.Logger

	mu      sync.Mutex
	events  map[uint64]*deviceEventCounters
	clients map[string]*ClientBus
	hook    EmissionHook
}

func NewDeviceBus(log rlog.Logger) *DeviceBus {
	if log == nil {
		log = rlog.NewNop()
	}
	return &DeviceBus{
		log:     log,
		events:  make(map[uint64]*deviceEventCounters),
		clients: make(map[string]*ClientBus),
	}
}

// SetEmissionHook installs the synchronous observer the trigger engine
// uses to evaluate event predicates as part of the emitting call.
func (d *DeviceBus) SetEmissionHook(hook EmissionHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hook = hook
}

// RegisterClient adds a client to the device's fan-out list.
func (d *DeviceBus) RegisterClient(clientID string, cb *ClientBus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[clientID] = cb
}

// UnregisterClient removes a client from the device's fan-out list.
func (d *DeviceBus) UnregisterClient(clientID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.clients, clientID)
}

// EventCounter returns the current monotonic counter for eventID
// without emitting anything.
func (d *DeviceBus) EventCounter(eventID uint64) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.events[eventID]
	if !ok {
		return 0
	}
	return c.eventCounter
}

// Emit increments eventID's counter, fans the event out to every client
// that currently has it enabled (error queue winning over normal queue
// for a given client), and finally invokes the emission hook. Events
// emitted while no client has them enabled are dropped at the source,
// per spec §4.B.
func (d *DeviceBus) Emit(eventID uint64, payload []byte) uint64 {
	d.mu.Lock()
	c, ok := d.events[eventID]
	if !ok {
		c = &deviceEventCounters{}
		d.events[eventID] = c
	}
	c.eventCounter++
	counter := c.eventCounter

	rec := Record{ID: eventID, Counter: counter, Timestamp: time.Now(), Payload: payload}
	for _, cb := range d.clients {
		cb.deliver(eventID, rec)
	}
	hook := d.hook
	d.mu.Unlock()

	if hook != nil {
		hook.EventFired(eventID, counter)
	}
	return counter
}

// Disable drops the device event-state for eventID once no client has
// it enabled anymore, resetting the counter, matching spec §4.B's
// "clearing on device-disable" rule.
func (d *DeviceBus) Disable(eventID uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, cb := range d.clients {
		if cb.isEnabled(eventID) {
			return
		}
	}
	delete(d.events, eventID)
}
