// Package busmanager implements the spec's Bus Manager: one FIFO and
// one worker goroutine per physical I²C bus, serializing dequeued
// client work behind a single bus-level mutex.
package busmanager

import (
	"context"
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/internal/debugstats"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
)

// Dispatcher is the subset of client.Client the manager drives. It is
// an interface so tests can substitute a fake worker.
type Dispatcher interface {
	ID() string
	// DeviceID reports the device this dispatcher's work is queued
	// against, so the manager can drop its entry once that device
	// disconnects. Returns "" for a dispatcher with no single owning
	// device, in which case its entries are never treated as stale.
	DeviceID() string
	Dispatch(ctx context.Context) bool
	Pending() bool
}

// clientEntry wraps a Dispatcher with the atomic "already queued" flag that
// makes Enqueue idempotent, matching spec §4.H's "the client appears in
// the FIFO at most once at a time".
type clientEntry struct {
	d      Dispatcher
	queued atomic.Bool
}

// Manager owns one bus's FIFO, spin-lock, worker, and connected-device
// list, per spec §4.H.
type Manager struct {
	busID string
	log   rlog.Logger

	spin  sync.Mutex // guards fifo only; held briefly, never across Drain
	fifo  *queue.Queue

	busMu sync.Mutex // the wide bus mutex, held across one client's Dispatch

	mu       sync.Mutex // guards clients, devices, firstPri, hasFirst
	clients  map[string]*clientEntry
	devices  map[string]int // device id -> priority, in connect order
	firstPri int
	hasFirst bool

	stats *debugstats.Counters

	wake chan struct{}

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	workers    sync.WaitGroup
}

// Registry is the process-wide table of Managers keyed by bus id,
// grounding spec §4.H's "global manager registry".
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]*Manager)}
}

// GetOrCreate returns the Manager for busID, creating and starting one
// if this is the first device to connect to that bus.
func (r *Registry) GetOrCreate(busID string, log rlog.Logger) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.managers[busID]; ok {
		return m
	}
	m := newManager(busID, log)
	r.managers[busID] = m
	return m
}

func (r *Registry) remove(busID string) {
	r.mu.Lock()
	delete(r.managers, busID)
	r.mu.Unlock()
}

func newManager(busID string, log rlog.Logger) *Manager {
	if log == nil {
		log = rlog.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		busID:      busID,
		log:        log,
		fifo:       queue.New(),
		clients:    make(map[string]*clientEntry),
		devices:    make(map[string]int),
		wake:       make(chan struct{}, 1),
		cancelCtx:  ctx,
		cancelFunc: cancel,
	}
	m.workers.Add(1)
	goutils.ManagedGo(m.drainLoop, m.workers.Done)
	return m
}

// SetStats attaches a counters sink the manager records its FIFO
// high-water mark into. The first device to connect on a bus wins;
// later calls are no-ops, matching Connect's first-connected-device
// convention.
func (m *Manager) SetStats(s *debugstats.Counters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stats == nil {
		m.stats = s
	}
}

// Connect registers deviceID at priority pri with this bus, logging a
// warning if it disagrees with the first-connected device's priority,
// per spec §4.H's "thread priority" rule.
func (m *Manager) Connect(deviceID string, pri int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[deviceID] = pri
	if !m.hasFirst {
		m.firstPri = pri
		m.hasFirst = true
		return
	}
	if pri != m.firstPri {
		m.log.Warnw("device priority mismatch on shared bus",
			"bus", m.busID, "device", deviceID, "priority", pri, "bus_priority", m.firstPri)
	}
}

// Disconnect removes deviceID from the connected-device list. If it was
// the last device, Disconnect tears the manager down entirely.
func (m *Manager) Disconnect(deviceID string, reg *Registry) {
	m.mu.Lock()
	delete(m.devices, deviceID)
	empty := len(m.devices) == 0
	m.mu.Unlock()

	if empty {
		m.Teardown(reg)
	}
}

// Enqueue registers d as having ready work, waking the drain worker. It
// is idempotent: a client already present in the FIFO is not added
// again, matching spec §4.H's Enqueue semantics.
func (m *Manager) Enqueue(d Dispatcher) {
	m.mu.Lock()
	entry, ok := m.clients[d.ID()]
	if !ok {
		entry = &clientEntry{d: d}
		m.clients[d.ID()] = entry
	}
	m.mu.Unlock()

	if !entry.queued.CompareAndSwap(false, true) {
		return
	}
	m.spin.Lock()
	m.fifo.Add(entry)
	depth := m.fifo.Length()
	m.spin.Unlock()

	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()
	if stats != nil {
		stats.ObserveBusQueueDepth(int64(depth))
	}

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// RunExclusive runs fn while holding the bus mutex, the same mutex
// drainOne holds across a client's Dispatch call. It lets a caller
// outside the normal Enqueue/drain path — client.Client's final drain
// on Close — run a bus-gated client's executor without interleaving
// with drainOne's dispatch of some other client sharing this bus, per
// spec §8's bus-serialization invariant.
func (m *Manager) RunExclusive(fn func()) {
	m.busMu.Lock()
	defer m.busMu.Unlock()
	fn()
}

// drainLoop is the bus's single kernel-thread-equivalent worker: pop,
// verify, lock the bus, dispatch, unlock, repeat, per spec §4.H's Drain.
func (m *Manager) drainLoop() {
	for {
		entry, ok := m.popOne()
		if !ok {
			select {
			case <-m.cancelCtx.Done():
				return
			case <-m.wake:
				continue
			}
		}
		m.drainOne(entry)
	}
}

func (m *Manager) popOne() (*clientEntry, bool) {
	m.spin.Lock()
	defer m.spin.Unlock()
	if m.fifo.Length() == 0 {
		return nil, false
	}
	v := m.fifo.Remove()
	entry, ok := v.(*clientEntry)
	return entry, ok
}

// drainOne asks entry's client to drain its ready queue against this
// bus, holding the bus mutex for the duration, then re-enqueues the
// client if it still has pending work. If the device this entry's
// client was queued against has since disconnected from the bus, the
// entry is dropped silently instead, per spec §4.H.
func (m *Manager) drainOne(entry *clientEntry) {
	if deviceID := entry.d.DeviceID(); deviceID != "" {
		m.mu.Lock()
		_, connected := m.devices[deviceID]
		m.mu.Unlock()
		if !connected {
			m.mu.Lock()
			delete(m.clients, entry.d.ID())
			m.mu.Unlock()
			entry.queued.Store(false)
			return
		}
	}

	m.busMu.Lock()
	for entry.d.Dispatch(m.cancelCtx) {
	}
	m.busMu.Unlock()

	entry.queued.Store(false)
	if entry.d.Pending() {
		m.Enqueue(entry.d)
	}
}

// Teardown flushes the worker, destroys the FIFO, and removes this
// manager from reg, per spec §4.H.
func (m *Manager) Teardown(reg *Registry) error {
	m.cancelFunc()
	m.workers.Wait()

	m.spin.Lock()
	remaining := m.fifo.Length()
	m.fifo = queue.New()
	m.spin.Unlock()

	if remaining != 0 {
		m.log.Warnw("bus manager teardown with non-empty fifo", "bus", m.busID, "remaining", remaining)
	}
	if reg != nil {
		reg.remove(m.busID)
	}
	if remaining != 0 {
		return errcode.New("busmanager.Teardown", errcode.Busy)
	}
	return nil
}
