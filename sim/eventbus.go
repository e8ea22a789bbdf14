// Synchronous, single-threaded FIFO event bus scoped to one tick.
//
// Events are observability signals only. Handlers must be read-only: they may
// not mutate simulation state and may not publish further events (no
// reentrant fan-out). Events published during tick N are dispatched by the
// tick-N Flush and then discarded; nothing crosses a tick boundary.

package sim

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Well-known event names in the required catalog.
const (
	EventTickComplete       = "sim.tick_complete"
	EventInvariantViolation = "sim.invariant_violation"
)

// UpdatedEvent returns the "<subsystem>.updated" event name.
func UpdatedEvent(subsystem string) string {
	return subsystem + ".updated"
}

// Event is a namespaced observability signal with an optional payload.
type Event struct {
	Name    string
	Tick    int64
	Payload map[string]float64
}

// Handler observes events. Handlers run synchronously on the simulation
// goroutine during Flush, in subscription order.
type Handler func(Event) error

// EventBus queues namespaced events during a tick and dispatches them in
// FIFO order on Flush. Not safe for concurrent use; the engine only touches
// it from the tick loop.
type EventBus struct {
	handlers    map[string][]Handler
	wildcard    []Handler
	pending     []Event
	dispatching bool
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for an exact event name, or for every event
// when name is "*".
func (b *EventBus) Subscribe(name string, h Handler) {
	if name == "*" {
		b.wildcard = append(b.wildcard, h)
		return
	}
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish queues an event for the current tick. Publishing from inside a
// handler is rejected: handlers are observers, not producers.
func (b *EventBus) Publish(ev Event) error {
	if b.dispatching {
		return fmt.Errorf("event bus: reentrant publish of %q during dispatch", ev.Name)
	}
	if !strings.Contains(ev.Name, ".") {
		return fmt.Errorf("event bus: event name %q is not namespaced", ev.Name)
	}
	b.pending = append(b.pending, ev)
	return nil
}

// Pending returns the number of queued events.
func (b *EventBus) Pending() int {
	return len(b.pending)
}

// Flush dispatches all queued events in FIFO order, then discards them.
// Handler errors are logged with full context and collected; they never stop
// dispatch of the remaining events, and the caller treats them as
// non-fatal (observability is off the critical path).
func (b *EventBus) Flush() []error {
	b.dispatching = true
	defer func() {
		b.dispatching = false
		b.pending = b.pending[:0]
	}()

	var errs []error
	for _, ev := range b.pending {
		for _, h := range b.handlers[ev.Name] {
			if err := b.dispatch(h, ev); err != nil {
				errs = append(errs, err)
			}
		}
		for _, h := range b.wildcard {
			if err := b.dispatch(h, ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

func (b *EventBus) dispatch(h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %q: %v", ev.Name, r)
		}
	}()
	if err := h(ev); err != nil {
		logrus.Warnf("event handler failed on %q at tick %d: %v", ev.Name, ev.Tick, err)
		return fmt.Errorf("handler for %q at tick %d: %w", ev.Name, ev.Tick, err)
	}
	return nil
}
