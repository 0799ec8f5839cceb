package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config controls dispatcher buffering and delivery.
type Config struct {
	BufferSize      int
	DeliveryTimeout time.Duration
	Scope           string
}

// Dispatcher queues events on a buffered channel drained by one goroutine.
// Notify never blocks; a full buffer drops the event.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time
	onDrop  func()
	ch      chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	failed  atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithDropHook runs fn each time an event is dropped.
func WithDropHook(fn func()) Option {
	return func(d *Dispatcher) { d.onDrop = fn }
}

// NewDispatcher starts a dispatcher delivering to sink.
func NewDispatcher(cfg Config, sink Sink, logger *slog.Logger, opts ...Option) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeSystem
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		now:    time.Now,
		ch:     make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify builds an event from name and record and queues it.
func (d *Dispatcher) Notify(name string, record any) {
	if d == nil || d.closed.Load() {
		return
	}
	ev, err := d.build(name, record)
	if err != nil {
		d.logger.Error("build event", slog.String("event", name), slog.Any("error", err))
		return
	}
	d.Publish(ev)
}

// Publish queues a prepared event.
func (d *Dispatcher) Publish(ev Event) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- ev:
	case <-d.done:
	default:
		d.dropped.Add(1)
		if d.onDrop != nil {
			d.onDrop()
		}
		d.logger.Warn("event dropped", slog.String("routing_key", ev.RoutingKey))
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Failed counts events the sink rejected.
func (d *Dispatcher) Failed() uint64 {
	if d == nil {
		return 0
	}
	return d.failed.Load()
}

func (d *Dispatcher) build(name string, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         id.String(),
		Name:       name,
		Scope:      d.cfg.Scope,
		RoutingKey: RoutingKey(d.cfg.Scope, name),
		OccurredAt: d.now().UTC(),
		Record:     raw,
	}, nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		case <-d.done:
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	if d.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliveryTimeout)
	defer cancel()
	if err := d.sink.Deliver(ctx, ev); err != nil {
		d.failed.Add(1)
		d.logger.Error("deliver event", slog.String("routing_key", ev.RoutingKey), slog.String("event_id", ev.ID), slog.Any("error", err))
	}
}
