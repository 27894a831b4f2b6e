// Package irqsim supplies a simulated hardware-event source shaped
// like github.com/mkch/gpio's real line-with-events interface, so the
// event bus and trigger engine can be exercised end to end against a
// hardware-event node without real silicon — the software analogue of
// genericlinux/digital_interrupts.go's startMonitor goroutine turning
// GPIO edges into interrupt ticks.
package irqsim

import (
	"context"
	"sync"
	"time"

	"github.com/mkch/gpio"
	goutils "go.viam.com/utils"

	"github.com/tbalden/google-modules-lwis/internal/rlog"
)

// Event pairs the line number with the edge data
// github.com/mkch/gpio's real LineWithEvent delivers on its Events
// channel (RisingEdge, Time), so consumers written against a real line
// and a simulated one share the same field shape.
type Event struct {
	Line uint32
	gpio.Event
}

// Source is a simulated GPIO line: it emits Event values on the same
// shape a real line's events carry, so callers can't tell the
// difference except that Fire is available to inject edges directly.
type Source struct {
	log    rlog.Logger
	events chan Event

	cancelCtx  context.Context
	cancelFunc context.CancelFunc
	workers    sync.WaitGroup
}

// NewSource returns a Source whose Events channel callers should select
// on exactly as they would a real line's.
func NewSource(log rlog.Logger) *Source {
	if log == nil {
		log = rlog.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		log:        log,
		events:     make(chan Event, 16),
		cancelCtx:  ctx,
		cancelFunc: cancel,
	}
}

// Events returns the channel of simulated edges.
func (s *Source) Events() <-chan Event { return s.events }

// Fire injects a single simulated edge, as if line had just
// transitioned, for use by tests and the TEST device type's command
// handlers.
func (s *Source) Fire(line uint32, risingEdge bool) {
	select {
	case s.events <- Event{Line: line, Event: gpio.Event{RisingEdge: risingEdge, Time: time.Now()}}:
	case <-s.cancelCtx.Done():
	}
}

// StartPeriodic fires a rising edge on line every interval until
// Close, mirroring a free-running hardware counter used to drive
// periodic TriggerNode.Event tests.
func (s *Source) StartPeriodic(line uint32, interval time.Duration) {
	s.workers.Add(1)
	goutils.ManagedGo(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.cancelCtx.Done():
				return
			case <-ticker.C:
				s.Fire(line, true)
			}
		}
	}, s.workers.Done)
}

// Close stops every running periodic source and closes the events
// channel.
func (s *Source) Close() {
	s.cancelFunc()
	s.workers.Wait()
	close(s.events)
}
