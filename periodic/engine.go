package periodic

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/eventbus"
	"github.com/tbalden/google-modules-lwis/internal/debugstats"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/ioentry"
	"github.com/tbalden/google-modules-lwis/registerio"
)

type timerGroup struct {
	period time.Duration
	ticker *time.Ticker
	ids    map[uint64]struct{}
	stop   chan struct{}
}

// Engine owns one client's periodic-I/O table: items keyed by id, and
// one timer group per distinct period shared by every item registered
// at that period, matching spec §4.F's "start (or re-use) an hrtimer
// keyed by period" requirement.
type Engine struct {
	clientID string
	log      rlog.Logger
	executor *ioentry.Executor
	backend  registerio.Backend
	device   *eventbus.DeviceBus
	stats    *debugstats.Counters

	// onReady delivers a ready batch to the client scheduler's periodic
	// work queue in submit order; it must not block.
	onReady func([]*Item)

	nextID atomic.Uint64

	mu     sync.Mutex
	items  map[uint64]*Item
	timers map[time.Duration]*timerGroup

	cancelCtx  context.Context
	cancelFunc context.CancelFunc

	activeWorkers sync.WaitGroup // timer goroutines, teardown via Close
	execWG        sync.WaitGroup // in-flight Execute calls, for Flush
}

// Config wires an Engine to its collaborators.
type Config struct {
	ClientID string
	Log      rlog.Logger
	Executor *ioentry.Executor
	Backend  registerio.Backend
	Device   *eventbus.DeviceBus
	Stats    *debugstats.Counters
	OnReady  func([]*Item)
}

func NewEngine(cfg Config) *Engine {
	log := cfg.Log
	if log == nil {
		log = rlog.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		clientID:   cfg.ClientID,
		log:        log,
		executor:   cfg.Executor,
		backend:    cfg.Backend,
		device:     cfg.Device,
		stats:      cfg.Stats,
		onReady:    cfg.OnReady,
		items:      make(map[uint64]*Item),
		timers:     make(map[time.Duration]*timerGroup),
		cancelCtx:  ctx,
		cancelFunc: cancel,
	}
}

// Submit registers a new periodic-I/O at period, starting (or reusing)
// that period's timer group.
func (e *Engine) Submit(entries []*ioentry.Entry, period time.Duration, emitSuccess, emitError uint64) (uint64, error) {
	if period <= 0 {
		return 0, errcode.New("periodic.Submit", errcode.InvalidArg)
	}
	if e.backend == nil {
		return 0, errcode.New("periodic.Submit", errcode.NotSupported)
	}

	id := e.nextID.Inc()
	item := &Item{
		ID:                 id,
		ClientID:           e.clientID,
		Entries:            entries,
		Period:             period,
		EmitSuccessEventID: emitSuccess,
		EmitErrorEventID:   emitError,
		active:             true,
		nextDeadline:       time.Now().Add(period),
	}

	e.mu.Lock()
	e.items[id] = item
	tg, ok := e.timers[period]
	if !ok {
		tg = &timerGroup{period: period, ticker: time.NewTicker(period), ids: make(map[uint64]struct{}), stop: make(chan struct{})}
		e.timers[period] = tg
		e.activeWorkers.Add(1)
		goutils.ManagedGo(func() { e.runTimerGroup(tg) }, e.activeWorkers.Done)
	}
	tg.ids[id] = struct{}{}
	e.mu.Unlock()

	if e.stats != nil {
		e.stats.TransactionSubmitted()
	}
	return id, nil
}

func (e *Engine) runTimerGroup(tg *timerGroup) {
	defer tg.ticker.Stop()
	for {
		select {
		case <-e.cancelCtx.Done():
			return
		case <-tg.stop:
			return
		case t := <-tg.ticker.C:
			e.fireTick(tg, t)
		}
	}
}

// fireTick gathers every active item still registered under tg and
// hands the whole batch to onReady in one call, matching the spec's
// "on each tick, push all periodic-I/Os registered for that period to
// the client work queue" / per-interval batch semantics.
func (e *Engine) fireTick(tg *timerGroup, now time.Time) {
	e.mu.Lock()
	batch := make([]*Item, 0, len(tg.ids))
	for id := range tg.ids {
		if item, ok := e.items[id]; ok && item.isActive() {
			item.mu.Lock()
			item.nextDeadline = now.Add(tg.period)
			item.mu.Unlock()
			batch = append(batch, item)
		}
	}
	e.mu.Unlock()

	if len(batch) > 0 && e.onReady != nil {
		e.onReady(batch)
	}
}

// Execute runs one tick's io-entry program for item, called by the
// client scheduler once it drains item from the periodic work queue.
func (e *Engine) Execute(ctx context.Context, item *Item) error {
	e.execWG.Add(1)
	defer e.execWG.Done()

	if item.IsCancelled() {
		if e.stats != nil {
			e.stats.TransactionCancelled()
		}
		return nil
	}

	runErr := e.executor.Execute(ctx, e.backend, item.Entries, ioentry.ExecuteOptions{IsCancelled: item.IsCancelled})
	if runErr != nil {
		if e.stats != nil {
			e.stats.TransactionFailed()
		}
		if e.device != nil && item.EmitErrorEventID != 0 {
			e.device.Emit(item.EmitErrorEventID, errorPayload(item.ID, runErr))
		}
		return runErr
	}
	if e.stats != nil {
		e.stats.TransactionCompleted()
	}
	if e.device != nil && item.EmitSuccessEventID != 0 {
		e.device.Emit(item.EmitSuccessEventID, successPayload(item))
	}
	return nil
}

// Cancel stops id's timer registration and flushes any in-flight tick
// for it, per spec §4.F.
func (e *Engine) Cancel(id uint64) error {
	e.mu.Lock()
	item, ok := e.items[id]
	if !ok {
		e.mu.Unlock()
		return errcode.New("periodic.Cancel", errcode.NotFound)
	}
	item.deactivate()
	delete(e.items, id)
	tg, ok := e.timers[item.Period]
	if ok {
		delete(tg.ids, id)
		if len(tg.ids) == 0 {
			delete(e.timers, item.Period)
			close(tg.stop)
		}
	}
	e.mu.Unlock()

	if e.stats != nil {
		e.stats.TransactionCancelled()
	}
	e.Flush()
	return nil
}

// Flush blocks until every currently in-flight Execute call returns,
// implementing spec §4.F's "flush-on-disable" requirement that a client
// wait for in-flight periodic work before powering down.
func (e *Engine) Flush() {
	e.execWG.Wait()
}

// Close tears down every timer goroutine and waits for them to exit.
func (e *Engine) Close() {
	e.cancelFunc()
	e.activeWorkers.Wait()
	e.Flush()
}
