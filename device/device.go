// Package device implements the spec's Device: identity, register-io
// capability, enable/disable lifecycle with a client-lock and
// enable-refcount, and the per-device event-state table and
// sub-class hook back-references data-model §3 describes.
package device

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/tbalden/google-modules-lwis/busmanager"
	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/eventbus"
	"github.com/tbalden/google-modules-lwis/internal/debugstats"
	"github.com/tbalden/google-modules-lwis/internal/irqsim"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/registerio"
	"github.com/tbalden/google-modules-lwis/trigger"
)

// Kind is the device type taxonomy from spec §3.
type Kind int

const (
	MMIO Kind = iota
	I2C
	SPI
	DPM
	TEST
	TOP
)

func (k Kind) String() string {
	switch k {
	case MMIO:
		return "mmio"
	case I2C:
		return "i2c"
	case SPI:
		return "spi"
	case DPM:
		return "dpm"
	case TEST:
		return "test"
	case TOP:
		return "top"
	default:
		return "unknown"
	}
}

// Hooks are a device sub-class's callback back-references, per spec §3
// ("back-references to sub-class hooks"). Any entry may be nil.
type Hooks struct {
	OnEnable  func() error
	OnDisable func() error
	OnSuspend func() error
	OnResume  func() error
}

// statsEmissionHook fans an emitted event to the trigger router and
// counts it, so debugstats.Counters.EventsEmitted reflects every event
// the device emits, whether or not any client has it enabled.
type statsEmissionHook struct {
	router *trigger.Router
	stats  *debugstats.Counters
}

func (h *statsEmissionHook) EventFired(eventID uint64, counter uint64) {
	h.stats.EventEmitted()
	h.router.EventFired(eventID, counter)
}

// Config describes a Device at construction time.
type Config struct {
	ID       string
	Name     string
	Kind     Kind
	Backend  registerio.Backend // may be nil for devices with no register access (e.g. DPM)
	Log      rlog.Logger
	Hooks    Hooks
	BusID    string // non-empty for I2C devices sharing a bus manager
	Priority int    // thread priority passed to busmanager.Manager.Connect
	BusReg   *busmanager.Registry
}

// Device is one managed piece of hardware (or virtual equivalent): the
// identity, enable state machine, and event-state table spec §3 assigns
// it, plus an optional busmanager.Manager reference for I²C devices.
type Device struct {
	ID      string
	Name    string
	Kind    Kind
	Backend registerio.Backend
	Bus     *eventbus.DeviceBus
	Router  *trigger.Router
	Stats   *debugstats.Counters

	// HWEvents is non-nil only for Kind == TEST: a simulated interrupt
	// source whose edges are translated into Bus.Emit calls, letting a
	// TEST device exercise the Event Bus and Trigger Engine without real
	// hardware.
	HWEvents *irqsim.Source

	log rlog.Logger

	hooks     Hooks
	bus       *busmanager.Manager
	busReg    *busmanager.Registry
	irqDone   chan struct{}
	irqCancel context.CancelFunc

	// clientLock is the sleep-mutex from spec §5 guarding enable/disable
	// transitions; held across every Enable/Disable/Suspend/Resume call.
	clientLock sync.Mutex

	mu            sync.Mutex
	enableCount   int64
	suspended     bool
	enabledByID   map[string]bool // per-client collapse of repeated Enable, per Open Question (a)
	eventRefCount map[uint64]int  // per-event-id count of clients with it currently enabled
}

// New constructs a Device in the disabled state.
func New(cfg Config) *Device {
	log := cfg.Log
	if log == nil {
		log = rlog.NewNop()
	}
	bus := eventbus.NewDeviceBus(log)
	router := trigger.NewRouter()
	stats := &debugstats.Counters{}
	bus.SetEmissionHook(&statsEmissionHook{router: router, stats: stats})
	d := &Device{
		ID:            cfg.ID,
		Name:          cfg.Name,
		Kind:          cfg.Kind,
		Backend:       cfg.Backend,
		Bus:           bus,
		Router:        router,
		Stats:         stats,
		log:           log,
		hooks:         cfg.Hooks,
		busReg:        cfg.BusReg,
		enabledByID:   make(map[string]bool),
		eventRefCount: make(map[uint64]int),
	}
	if cfg.Kind == I2C && cfg.BusReg != nil && cfg.BusID != "" {
		d.bus = cfg.BusReg.GetOrCreate(cfg.BusID, log)
		d.bus.Connect(cfg.ID, cfg.Priority)
		d.bus.SetStats(stats)
	}
	if cfg.Kind == TEST {
		d.HWEvents = irqsim.NewSource(log)
		d.startIRQBridge()
	}
	return d
}

// startIRQBridge launches the goroutine that turns simulated GPIO edges
// into device-bus events, one event id per IRQ line. The payload is the
// edge polarity, matching the single-bit "asserted" signal a real
// interrupt line carries.
func (d *Device) startIRQBridge() {
	ctx, cancel := context.WithCancel(context.Background())
	d.irqCancel = cancel
	d.irqDone = make(chan struct{})
	goutils.ManagedGo(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-d.HWEvents.Events():
				if !ok {
					return
				}
				payload := []byte{0}
				if ev.RisingEdge {
					payload[0] = 1
				}
				d.Bus.Emit(uint64(ev.Line), payload)
			}
		}
	}, func() { close(d.irqDone) })
}

// Enable implements spec §9 Open Question (a): a second Enable from the
// same clientID is a no-op against the refcount (idempotent per
// client), while a first Enable from a new client increments it. The
// sub-class OnEnable hook only fires on the 0->1 transition.
func (d *Device) Enable(clientID string) error {
	d.clientLock.Lock()
	defer d.clientLock.Unlock()

	d.mu.Lock()
	if d.enabledByID[clientID] {
		d.mu.Unlock()
		return nil
	}
	if d.enableCount == math.MaxInt64 {
		d.mu.Unlock()
		// Spec §7: enable-counter overflow is a fatal condition.
		return errcode.New("device.Enable", errcode.Overflow)
	}
	wasZero := d.enableCount == 0
	d.enableCount++
	d.enabledByID[clientID] = true
	d.mu.Unlock()

	if wasZero && d.hooks.OnEnable != nil {
		if err := d.hooks.OnEnable(); err != nil {
			d.mu.Lock()
			d.enableCount--
			delete(d.enabledByID, clientID)
			d.mu.Unlock()
			return errors.Wrap(err, "device enable hook")
		}
	}
	return nil
}

// Disable decrements clientID's enable reference; the sub-class
// OnDisable hook fires only on the 1->0 transition. Disabling a client
// that was never enabled is a no-op.
func (d *Device) Disable(clientID string) error {
	d.clientLock.Lock()
	defer d.clientLock.Unlock()

	d.mu.Lock()
	if !d.enabledByID[clientID] {
		d.mu.Unlock()
		return nil
	}
	delete(d.enabledByID, clientID)
	d.enableCount--
	becameZero := d.enableCount == 0
	d.mu.Unlock()

	if becameZero && d.hooks.OnDisable != nil {
		if err := d.hooks.OnDisable(); err != nil {
			return errors.Wrap(err, "device disable hook")
		}
	}
	return nil
}

// Suspend pauses the device without dropping the enable refcount.
func (d *Device) Suspend() error {
	d.clientLock.Lock()
	defer d.clientLock.Unlock()
	d.mu.Lock()
	already := d.suspended
	d.suspended = true
	d.mu.Unlock()
	if already || d.hooks.OnSuspend == nil {
		return nil
	}
	return errors.Wrap(d.hooks.OnSuspend(), "device suspend hook")
}

// Resume reverses Suspend.
func (d *Device) Resume() error {
	d.clientLock.Lock()
	defer d.clientLock.Unlock()
	d.mu.Lock()
	wasSuspended := d.suspended
	d.suspended = false
	d.mu.Unlock()
	if !wasSuspended || d.hooks.OnResume == nil {
		return nil
	}
	return errors.Wrap(d.hooks.OnResume(), "device resume hook")
}

// EventEnableChanged implements eventbus.EnableHook: ClientBus.ControlSet
// calls it whenever one client's flags for eventID flip between zero and
// non-zero, per spec §4.B's "must call the device's event_enable hook
// with the new aggregate enable state". Device tracks how many clients
// currently have eventID enabled and logs the 0<->non-zero transition of
// that aggregate; it has no real hardware interrupt line to mask (the
// physical register/bus backend is an external collaborator per §1), so
// this is the full extent of the hook's job here.
func (d *Device) EventEnableChanged(eventID uint64, enabled bool) {
	d.mu.Lock()
	before := d.eventRefCount[eventID]
	if enabled {
		d.eventRefCount[eventID]++
	} else if before > 0 {
		d.eventRefCount[eventID]--
	}
	after := d.eventRefCount[eventID]
	d.mu.Unlock()

	if (before == 0) != (after == 0) {
		d.log.Debugw("device event gate changed", "device", d.ID, "event_id", eventID, "enabled", after > 0)
	}
}

// BusManager returns the busmanager.Manager this device arbitrates
// through, or nil for devices with no shared bus (everything but I2C).
func (d *Device) BusManager() *busmanager.Manager {
	return d.bus
}

// IsEnabled reports whether any client currently holds this device
// enabled.
func (d *Device) IsEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enableCount > 0
}

// IsSuspended reports the current suspend flag.
func (d *Device) IsSuspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

// Close disconnects this device from its bus manager, if any, and
// disables every remaining client reference, matching spec §4.H's
// "last device disconnect" teardown trigger.
func (d *Device) Close() error {
	d.mu.Lock()
	ids := make([]string, 0, len(d.enabledByID))
	for id := range d.enabledByID {
		ids = append(ids, id)
	}
	d.mu.Unlock()

	var err error
	for _, id := range ids {
		if e := d.Disable(id); e != nil {
			err = e
		}
	}
	if d.bus != nil {
		d.bus.Disconnect(d.ID, d.busReg)
	}
	if d.HWEvents != nil {
		d.irqCancel()
		d.HWEvents.Close()
		<-d.irqDone
	}
	return err
}
