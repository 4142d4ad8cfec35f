package events

import (
	"context"
	"fmt"
	"sync"

	"moneytrace/internal/log"
)

// Handler reacts to one event. The context is never cancelled by the caller.
type Handler func(ctx context.Context, env *Envelope) error

// Dispatcher maps event names to their handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	any      []Handler
	logger   *log.Logger
}

func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		logger:   logger.WithComponent(log.ComponentEvents),
	}
}

// Register adds a handler for events of type E.
func Register[E Event](d *Dispatcher, h func(ctx context.Context, env *Envelope, e E) error) {
	var zero E
	name := zero.EventName()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], func(ctx context.Context, env *Envelope) error {
		e, ok := env.Event.(E)
		if !ok {
			return fmt.Errorf("event %s carries %T", env.Name, env.Event)
		}
		return h(ctx, env, e)
	})
}

// Subscribe adds a handler that receives every event, after the typed ones.
func (d *Dispatcher) Subscribe(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.any = append(d.any, h)
}

// HandlerCount returns how many handlers an event name reaches.
func (d *Dispatcher) HandlerCount(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[name]) + len(d.any)
}

// Dispatch delivers envelopes in order. Each envelope is marked published
// before its first handler runs and is skipped if already published.
// Handler errors and panics are logged and never stop the remaining handlers
// or envelopes. Cancellation of ctx is ignored once dispatch has started.
func (d *Dispatcher) Dispatch(ctx context.Context, envs []*Envelope) {
	ctx = context.WithoutCancel(ctx)
	for _, env := range envs {
		if env == nil || env.Published {
			continue
		}
		env.Published = true

		d.mu.RLock()
		hs := make([]Handler, 0, len(d.handlers[env.Name])+len(d.any))
		hs = append(hs, d.handlers[env.Name]...)
		hs = append(hs, d.any...)
		d.mu.RUnlock()

		for i, h := range hs {
			if err := d.invoke(ctx, env, h); err != nil {
				d.logger.ErrorContext(ctx, "Event handler failed",
					log.FieldEventID, env.ID,
					log.FieldEventName, env.Name,
					log.FieldHandler, i,
					log.FieldError, err)
			}
		}
		d.logger.DebugContext(ctx, "Event dispatched",
			log.FieldEventID, env.ID,
			log.FieldEventName, env.Name,
			"handlers", len(hs))
	}
}

func (d *Dispatcher) invoke(ctx context.Context, env *Envelope, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, env)
}
