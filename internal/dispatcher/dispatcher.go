// Package dispatcher routes named commands to handlers, optionally through a bounded queue
// served by one worker per command.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
	ErrClosed         = errors.New("dispatcher closed")
)

// Event is one command addressed to a target.
type Event struct {
	Command   string
	Payload   json.RawMessage
	Timestamp time.Time
}

// Decode unmarshals the event payload into v. An empty payload leaves v untouched.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Command, err)
	}
	return nil
}

// Queued is the result of dispatching to a buffered command.
type Queued struct {
	Command string
	// Depth is the queue length right after the event was queued.
	Depth int
}

// HandlerFunc processes an event for a target and returns a result.
type HandlerFunc[T any] func(T, Event) (any, error)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type options struct {
	queue    int
	blocking bool
	logged   bool
}

// Option configures a registered command.
type Option func(*options)

// Buffered runs the handler on a worker fed by a queue of size events. Dispatch returns a
// Queued result right away.
func Buffered(size int) Option {
	return func(o *options) { o.queue = size }
}

// Blocking makes a full queue block the caller instead of rejecting the event.
func Blocking() Option {
	return func(o *options) { o.blocking = true }
}

// Logged logs each handler run at debug level and failures at error level. For buffered
// commands the run on the worker is logged.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

type queued[T any] struct {
	target T
	event  Event
}

// Dispatcher routes events to registered handlers. Register every command before the
// first Dispatch.
type Dispatcher[T any] struct {
	handlers map[string]HandlerFunc[T]
	logger   Logger
	ins      *instruments
	reg      metric.Registration

	mu     sync.RWMutex
	queues map[string]chan queued[T]
	closed bool
	wg     sync.WaitGroup
}

// New creates a dispatcher recording to the global meter provider.
func New[T any](logger Logger) (*Dispatcher[T], error) {
	ins, err := newInstruments()
	if err != nil {
		return nil, err
	}
	d := &Dispatcher[T]{
		handlers: make(map[string]HandlerFunc[T]),
		queues:   make(map[string]chan queued[T]),
		logger:   logger,
		ins:      ins,
	}
	d.reg, err = ins.observeQueues(d.depths)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}
	return d, nil
}

// Register adds the handler of command.
func (d *Dispatcher[T]) Register(command string, h HandlerFunc[T], opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logged {
		h = d.logged(command, h)
	}
	if o.queue > 0 {
		h = d.enqueue(command, o.queue, o.blocking, h)
	}
	d.handlers[command] = h
}

// Dispatch runs or queues the handler of e.Command. A zero timestamp is set to now.
func (d *Dispatcher[T]) Dispatch(target T, e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(target, e)
}

// Close rejects further queued events and waits for the workers to drain their queues.
func (d *Dispatcher[T]) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
	return d.reg.Unregister()
}

func (d *Dispatcher[T]) depths() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.queues))
	for cmd, q := range d.queues {
		out[cmd] = len(q)
	}
	return out
}

func (d *Dispatcher[T]) enqueue(command string, size int, blocking bool, h HandlerFunc[T]) HandlerFunc[T] {
	q := make(chan queued[T], size)
	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	attrs := metric.WithAttributes(commandAttr(command))
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for item := range q {
			start := time.Now()
			_, err := h(item.target, item.event)
			d.ins.duration.Record(context.Background(), float64(time.Since(start).Microseconds())/1000, attrs)
			d.ins.processed.Add(context.Background(), 1, attrs)
			if err != nil {
				d.ins.failed.Add(context.Background(), 1, attrs)
			}
		}
	}()

	// Close takes the write lock, so holding the read lock keeps q open during the send.
	return func(target T, e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, fmt.Errorf("%w: %s", ErrClosed, command)
		}
		item := queued[T]{target: target, event: e}
		if blocking {
			q <- item
			return Queued{Command: command, Depth: len(q)}, nil
		}
		select {
		case q <- item:
			return Queued{Command: command, Depth: len(q)}, nil
		default:
			d.ins.dropped.Add(context.Background(), 1, attrs)
			d.logger.Warn("event dropped", "command", command, "queue", size)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher[T]) logged(command string, h HandlerFunc[T]) HandlerFunc[T] {
	return func(target T, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "payload", len(e.Payload))
		result, err := h(target, e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
