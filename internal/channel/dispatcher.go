package channel

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives decoded application events from the channel.
type Handler func(Envelope)

// dispatcher owns the subscriber registry and fans decoded frames out to it.
// Subscriber failures are isolated: a panicking handler is logged and the
// remaining handlers still run.
type dispatcher struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[uuid.UUID]Handler
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcher{
		logger: logger,
		subs:   make(map[uuid.UUID]Handler),
	}
}

// subscribe registers a handler and returns its cancellation closure. The
// closure is safe to call more than once.
func (d *dispatcher) subscribe(h Handler) func() {
	id := uuid.New()

	d.mu.Lock()
	d.subs[id] = h
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

// count returns the number of registered subscribers.
func (d *dispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// dispatch decodes a raw frame and delivers it to every subscriber. A frame
// that fails to decode is logged and dropped; it never alters channel state.
func (d *dispatcher) dispatch(raw []byte) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		d.logger.Warn("dropping malformed frame", "error", err, "bytes", len(raw))
		return
	}
	d.deliver(env)
}

// deliver invokes every currently registered subscriber with the envelope.
func (d *dispatcher) deliver(env Envelope) {
	d.mu.Lock()
	handlers := make([]Handler, 0, len(d.subs))
	for _, h := range d.subs {
		handlers = append(handlers, h)
	}
	d.mu.Unlock()

	for _, h := range handlers {
		d.invoke(h, env)
	}
}

// invoke runs one handler, containing any panic it raises.
func (d *dispatcher) invoke(h Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("subscriber panicked",
				"type", env.Type,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	h(env)
}
