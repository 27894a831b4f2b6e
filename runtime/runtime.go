// Package runtime wires one process's device topology into a running
// set of device.Device, busmanager.Manager, and per-client
// command.Dispatcher instances — the equivalent of LWIS's probe path
// that builds one lwis_device per device-tree node.
package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tbalden/google-modules-lwis/busmanager"
	"github.com/tbalden/google-modules-lwis/client"
	"github.com/tbalden/google-modules-lwis/command"
	"github.com/tbalden/google-modules-lwis/device"
	"github.com/tbalden/google-modules-lwis/dmabuffer"
	"github.com/tbalden/google-modules-lwis/dpm"
	"github.com/tbalden/google-modules-lwis/errcode"
	"github.com/tbalden/google-modules-lwis/eventbus"
	"github.com/tbalden/google-modules-lwis/fence"
	"github.com/tbalden/google-modules-lwis/internal/rlog"
	"github.com/tbalden/google-modules-lwis/internal/runtimeconfig"
	"github.com/tbalden/google-modules-lwis/ioentry"
	"github.com/tbalden/google-modules-lwis/periodic"
	"github.com/tbalden/google-modules-lwis/registerio"
	"github.com/tbalden/google-modules-lwis/transaction"
	"github.com/tbalden/google-modules-lwis/trigger"
)

// Runtime owns every device this process manages and the shared bus
// registry they arbitrate through.
type Runtime struct {
	log    rlog.Logger
	buses  *busmanager.Registry
	fences *fence.Registry
	dpmCtl dpm.Controller

	mu      sync.Mutex
	devices map[string]*device.Device
}

// New constructs an empty Runtime.
func New(log rlog.Logger) *Runtime {
	if log == nil {
		log = rlog.NewNop()
	}
	return &Runtime{
		log:     log,
		buses:   busmanager.NewRegistry(),
		fences:  fence.NewRegistry(log),
		dpmCtl:  dpm.NewFakeController(),
		devices: make(map[string]*device.Device),
	}
}

// LoadConfig builds one device.Device per entry in cfg, using backends
// a caller supplies (real callers wire concrete registerio.Backend
// instances per device id; tests typically pass
// registerio.NewMMIOBackend() for everything).
func (r *Runtime) LoadConfig(cfg *runtimeconfig.Config, backends map[string]registerio.Backend) error {
	if err := cfg.Validate("runtime"); err != nil {
		return err
	}
	for _, dc := range cfg.Devices {
		kind, err := dc.ParseKind()
		if err != nil {
			return err
		}
		d := device.New(device.Config{
			ID:       dc.ID,
			Name:     dc.Name,
			Kind:     kind,
			Backend:  backends[dc.ID],
			Log:      r.log.Named(dc.ID),
			BusID:    dc.BusID,
			Priority: dc.Priority,
			BusReg:   r.buses,
		})
		r.mu.Lock()
		r.devices[dc.ID] = d
		r.mu.Unlock()
	}
	return nil
}

// Device looks up a managed device by id.
func (r *Runtime) Device(id string) (*device.Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	return d, ok
}

// ClientSession is everything one client needs attached to one device:
// its event queue, trigger engine, transaction table, periodic engine,
// scheduler, and command dispatcher, following spec §3's "Client"
// entity and §4.G's scheduler wiring.
type ClientSession struct {
	ClientID   string
	ClientBus  *eventbus.ClientBus
	Trigger    *trigger.Engine
	Txns       *transaction.Table
	Periodic   *periodic.Engine
	Scheduler  *client.Client
	Dispatcher *command.Dispatcher
}

// OpenClientSession attaches a new client to deviceID, wiring every
// collaborator spec §4 describes into one client.Client drain loop.
func (r *Runtime) OpenClientSession(deviceID, clientID string) (*ClientSession, error) {
	dev, ok := r.Device(deviceID)
	if !ok {
		return nil, errcode.New("runtime.OpenClientSession", errcode.NotFound)
	}

	log := r.log.Named(clientID)
	clientBus := eventbus.NewClientBus(dev)
	dev.Bus.RegisterClient(clientID, clientBus)

	engine := trigger.NewEngine(clientID)
	dev.Router.Register(clientID, engine)

	executor := ioentry.NewExecutor(log)

	sess := &ClientSession{ClientID: clientID, ClientBus: clientBus, Trigger: engine}

	schedCfg := client.Config{ClientID: clientID, DeviceID: deviceID, Log: log}
	var scheduler *client.Client
	if busMgr := dev.BusManager(); busMgr != nil {
		schedCfg.BusNotify = func() { busMgr.Enqueue(scheduler) }
		schedCfg.BusRunExclusive = busMgr.RunExclusive
	}
	scheduler = client.New(schedCfg)

	txns := transaction.NewTable(transaction.Config{
		ClientID:      clientID,
		Log:           log,
		Engine:        engine,
		FenceRegistry: r.fences,
		Executor:      executor,
		Backend:       dev.Backend,
		DeviceBus:     dev.Bus,
		ClientBus:     clientBus,
		Stats:         dev.Stats,
		OnReady:       scheduler.NotifyTransactionReady,
	})

	pio := periodic.NewEngine(periodic.Config{
		ClientID: clientID,
		Log:      log,
		Executor: executor,
		Backend:  dev.Backend,
		Device:   dev.Bus,
		Stats:    dev.Stats,
		OnReady:  scheduler.NotifyPeriodicReady,
	})

	scheduler.SetRunners(txns, pio)

	disp := command.NewDispatcher(command.Config{
		ClientID:  clientID,
		Log:       log,
		Device:    dev,
		ClientBus: clientBus,
		Executor:  executor,
		Txns:      txns,
		Periodic:  pio,
		Buffers:   dmabuffer.NewMemTable(),
		DPM:       r.dpmCtl,
		StartedAt: time.Now(),
	})

	sess.Txns = txns
	sess.Periodic = pio
	sess.Scheduler = scheduler
	sess.Dispatcher = disp
	return sess, nil
}

// CloseClientSession detaches a client session from its device,
// unregistering it from the trigger router and event bus and stopping
// its scheduler and periodic-I/O timers.
func (r *Runtime) CloseClientSession(deviceID string, sess *ClientSession) {
	dev, ok := r.Device(deviceID)
	if !ok {
		return
	}
	dev.Router.Unregister(sess.ClientID)
	dev.Bus.UnregisterClient(sess.ClientID)
	sess.Periodic.Close()
	sess.Scheduler.Close()
}

// Close tears down every device this runtime owns concurrently — each
// device's Close only touches its own state and bus manager, so the
// teardown fans out with an errgroup instead of a sequential loop.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	devs := make([]*device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		devs = append(devs, d)
	}
	r.mu.Unlock()

	var mu sync.Mutex
	var combined error
	g, _ := errgroup.WithContext(ctx)
	for _, d := range devs {
		d := d
		g.Go(func() error {
			if e := d.Close(); e != nil {
				mu.Lock()
				combined = multierr.Append(combined, e)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if combined != nil {
		return errors.Wrap(combined, "runtime close")
	}
	return nil
}
