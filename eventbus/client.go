package eventbus

import (
	"sync"

	"github.com/tbalden/google-modules-lwis/errcode"
)

// FlagUpdate is one entry of an EventControl{Set([...])} command body.
type FlagUpdate struct {
	ID    uint64
	Flags Flags
}

// ClientBus is a client's event-state table plus its two priority
// queues. A client belongs to exactly one device's DeviceBus.
type ClientBus struct {
	enableHook EnableHook

	mu      sync.Mutex
	flags   map[uint64]Flags
	normalQ []Record
	errorQ  []Record

	// wake is sent to (non-blocking) whenever a record is enqueued, so a
	// blocking EventDequeue caller can wait on it.
	wake chan struct{}
}

// NewClientBus returns an empty client event-state table. enableHook may
// be nil for clients whose device doesn't need enable-state propagation
// (e.g. virtual devices).
func NewClientBus(enableHook EnableHook) *ClientBus {
	return &ClientBus{
		enableHook: enableHook,
		flags:      make(map[uint64]Flags),
		wake:       make(chan struct{}, 1),
	}
}

// Wake returns the channel that receives a value whenever a new event is
// enqueued, for callers that want to block in a select alongside other
// wake sources.
func (c *ClientBus) Wake() <-chan struct{} { return c.wake }

func (c *ClientBus) isEnabled(eventID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags[eventID].enabled()
}

// ControlSet applies flag updates and calls the device's EnableHook
// whenever an id's aggregate enable state flips 0->non-zero or
// non-zero->0, per spec §4.B.
func (c *ClientBus) ControlSet(updates []FlagUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range updates {
		before := c.flags[u.ID]
		if u.Flags == 0 {
			delete(c.flags, u.ID)
		} else {
			c.flags[u.ID] = u.Flags
		}
		wasEnabled := before.enabled()
		isEnabled := u.Flags.enabled()
		if wasEnabled != isEnabled && c.enableHook != nil {
			c.enableHook.EventEnableChanged(u.ID, isEnabled)
		}
	}
}

// ControlGet returns the current flags for eventID.
func (c *ClientBus) ControlGet(eventID uint64) Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags[eventID]
}

// deliver is called by DeviceBus.Emit under the device lock; it decides
// whether this client wants eventID and, if so, pushes onto the error
// queue (if the error flag is set) or the normal queue.
func (c *ClientBus) deliver(eventID uint64, rec Record) {
	c.mu.Lock()
	flags := c.flags[eventID]
	if flags == 0 {
		c.mu.Unlock()
		return
	}
	if flags&FlagError != 0 {
		c.errorQ = append(c.errorQ, rec)
	} else if flags&FlagNormal != 0 {
		c.normalQ = append(c.normalQ, rec)
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Dequeue pops the error queue first, then the normal queue. If cap is
// smaller than the head record's payload, the required size is
// returned and nothing is popped, so the caller can retry with a larger
// buffer (spec §8 scenario 6).
func (c *ClientBus) Dequeue(capacity int) (rec Record, requiredSize int, popped bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var q *[]Record
	if len(c.errorQ) > 0 {
		q = &c.errorQ
	} else if len(c.normalQ) > 0 {
		q = &c.normalQ
	} else {
		return Record{}, 0, false, errcode.New("eventbus.Dequeue", errcode.NotFound)
	}

	head := (*q)[0]
	if len(head.Payload) > capacity {
		return Record{}, len(head.Payload), false, nil
	}
	*q = (*q)[1:]
	return head, 0, true, nil
}

// Clear drops both queues and the flag table, used when the owning
// device is disabled. It returns the event ids that were enabled so the
// caller can ask the owning DeviceBus to drop their per-event state too
// if no other client still wants them, per spec §4.B.
func (c *ClientBus) Clear() []uint64 {
	c.mu.Lock()
	ids := make([]uint64, 0, len(c.flags))
	for id, f := range c.flags {
		if f.enabled() {
			ids = append(ids, id)
		}
	}
	c.normalQ = nil
	c.errorQ = nil
	c.flags = make(map[uint64]Flags)
	hook := c.enableHook
	c.mu.Unlock()

	if hook != nil {
		for _, id := range ids {
			hook.EventEnableChanged(id, false)
		}
	}
	return ids
}
