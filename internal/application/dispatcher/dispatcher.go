// Package dispatcher fans committed request events out to subscribers such as
// the Lark notifier and the metrics recorder.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/delegate-desk/internal/domain/event"
)

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type, or AllEvents
	Subscribe(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs every matching handler in registration order.
	// A failing handler does not stop the others; all errors are joined.
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs matching handlers in the background.
	// Handlers see ctx's values but not its cancellation.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// ListHandlers returns the handlers that would receive an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close stops accepting events and waits for async handlers
	Close() error
}

// Logger is the logging dependency of the dispatcher
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrClosed is returned when dispatching on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

const defaultMaxInFlight = 16

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger

	wg     sync.WaitGroup
	sem    chan struct{}
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// WithMaxInFlight bounds how many async handlers run at once
func WithMaxInFlight(n int) Option {
	return func(d *eventDispatcher) {
		if n > 0 {
			d.sem = make(chan struct{}, n)
		}
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		sem:      make(chan struct{}, defaultMaxInFlight),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a handler; a later handler with the same name replaces the earlier one
func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("handler-%d", len(d.handlers[eventType]))
	}

	info := HandlerInfo{Name: name, EventType: eventType, Handler: handler}

	replaced := false
	for i, h := range d.handlers[eventType] {
		if h.Name == name {
			d.handlers[eventType][i] = info
			replaced = true
		}
	}
	if !replaced {
		d.handlers[eventType] = append(d.handlers[eventType], info)
	}

	d.log("Handler registered", "event_type", eventType, "handler_name", name)
}

// Unsubscribe removes a handler by name
func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[eventType]
	filtered := make([]HandlerInfo, 0, len(handlers))
	for _, h := range handlers {
		if h.Name != name {
			filtered = append(filtered, h)
		}
	}
	d.handlers[eventType] = filtered

	d.log("Handler unregistered", "event_type", eventType, "handler_name", name)
}

// matching returns the specific handlers followed by the AllEvents handlers
func (d *eventDispatcher) matching(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]HandlerInfo, 0, len(d.handlers[eventType])+len(d.handlers[AllEvents]))
	out = append(out, d.handlers[eventType]...)
	if eventType != AllEvents {
		out = append(out, d.handlers[AllEvents]...)
	}
	return out
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}

	handlers := d.matching(evt.Type)
	d.log("Dispatching event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"request_number", evt.RequestNumber,
		"handler_count", len(handlers),
	)

	var errs []error
	for _, info := range handlers {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.logError("Handler error", evt, info, err)
			errs = append(errs, fmt.Errorf("handler %s failed: %w", info.Name, err))
		}
	}

	return errors.Join(errs...)
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		if d.logger != nil {
			d.logger.Error("Cannot dispatch async event, dispatcher is closed",
				"event_type", evt.Type,
				"event_id", evt.ID,
			)
		}
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, info := range d.matching(evt.Type) {
		d.wg.Add(1)
		go func(h HandlerInfo) {
			defer d.wg.Done()

			d.sem <- struct{}{}
			defer func() { <-d.sem }()

			if err := d.safeExecute(ctx, evt, h); err != nil {
				d.logError("Async handler error", evt, h, err)
			}
		}(info)
	}
}

func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	handlers := d.matching(eventType)
	for i := range handlers {
		handlers[i].Handler = nil
	}
	return handlers
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("%w already", ErrClosed)
	}

	d.log("Closing dispatcher, waiting for async handlers")
	d.wg.Wait()
	d.log("Dispatcher closed")

	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return info.Handler(ctx, evt)
}

func (d *eventDispatcher) log(msg string, keysAndValues ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, keysAndValues...)
	}
}

func (d *eventDispatcher) logError(msg string, evt *event.Event, info HandlerInfo, err error) {
	if d.logger != nil {
		d.logger.Error(msg,
			"event_type", evt.Type,
			"event_id", evt.ID,
			"handler_name", info.Name,
			"error", err,
		)
	}
}
