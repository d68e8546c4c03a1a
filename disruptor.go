package disruptor

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/ringwire/disruptor/logging"
)

// Disruptor wires a ring buffer to a graph of event handlers.
//
// Handlers are registered in stages with HandleEventsWith and Then, then
// Start runs one processor per handler on the executor and returns the
// ring buffer for producers. Handlers of one stage see every event in
// parallel; a later stage only sees an event once every handler of the
// stage before it has handled it.
type Disruptor[T any] struct {
	name       string
	ringBuffer *RingBuffer[T]
	executor   Executor
	logger     logging.Logger
	exceptions *countingExceptionHandler
	registerer prometheus.Registerer
	collector  prometheus.Collector

	mu        sync.Mutex
	consumers []*consumer[T]
	errs      error
	started   atomic.Bool
}

type consumer[T any] struct {
	handler    EventHandler[T]
	processor  *BatchEventProcessor[T]
	name       string
	endOfChain bool
	submitted  bool
}

// New returns a disruptor over a ring buffer of bufferSize slots filled
// by factory. A nil executor runs each processor on its own goroutine.
func New[T any](factory EventFactory[T], bufferSize int, executor Executor, opts ...Option) (*Disruptor[T], error) {
	o := loadOptions(opts...)
	rb, err := newRingBuffer(factory, bufferSize, o)
	if err != nil {
		return nil, err
	}
	if executor == nil {
		executor = GoroutineExecutor{}
	}
	name := o.name
	if name == "" {
		name = uuid.NewString()
	}
	d := &Disruptor[T]{
		name:       name,
		ringBuffer: rb,
		executor:   executor,
		logger:     o.logger,
		exceptions: &countingExceptionHandler{next: o.exceptionHandler},
		registerer: o.registerer,
	}
	if d.registerer != nil {
		d.collector = NewCollector(d)
	}
	return d, nil
}

// Name returns the name used in logs and metric labels.
func (d *Disruptor[T]) Name() string {
	return d.name
}

// HandleEventsWith adds a stage of handlers that depend on the producer
// only. Each handler sees every event.
func (d *Disruptor[T]) HandleEventsWith(handlers ...EventHandler[T]) *EventHandlerGroup[T] {
	return d.createEventProcessors(nil, handlers)
}

// After returns a group of handlers already registered, so that new
// stages can be chained after them.
func (d *Disruptor[T]) After(handlers ...EventHandler[T]) *EventHandlerGroup[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := &EventHandlerGroup[T]{d: d}
	for _, h := range handlers {
		c := d.lookup(h)
		if c == nil {
			g.err = d.recordLocked(fmt.Errorf("after %T: %w", h, ErrUnknownHandler))
			return g
		}
		g.consumers = append(g.consumers, c)
	}
	return g
}

func (d *Disruptor[T]) createEventProcessors(deps []*consumer[T], handlers []EventHandler[T]) *EventHandlerGroup[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	g := &EventHandlerGroup[T]{d: d}
	switch {
	case d.started.Load():
		g.err = d.recordLocked(ErrAlreadyStarted)
		return g
	case len(handlers) == 0:
		g.err = d.recordLocked(ErrEmptyHandlerGroup)
		return g
	}

	depSeqs := make([]*Sequence, len(deps))
	for i, c := range deps {
		depSeqs[i] = c.processor.Sequence()
	}
	for _, h := range handlers {
		if h == nil {
			g.err = d.recordLocked(ErrEmptyHandlerGroup)
			return g
		}
		if d.lookup(h) != nil {
			g.err = d.recordLocked(fmt.Errorf("handle %T: %w", h, ErrDuplicateHandler))
			return g
		}
		// Every processor gets its own barrier so that alerting one on halt
		// does not disturb the others.
		p := NewBatchEventProcessor[T](d.ringBuffer, d.ringBuffer.NewBarrier(depSeqs...), h)
		p.SetExceptionHandler(d.exceptions)
		c := &consumer[T]{
			handler:    h,
			processor:  p,
			name:       handlerName(h, len(d.consumers)),
			endOfChain: true,
		}
		d.consumers = append(d.consumers, c)
		g.consumers = append(g.consumers, c)
	}
	for _, c := range deps {
		c.endOfChain = false
	}
	return g
}

func (d *Disruptor[T]) recordLocked(err error) error {
	d.errs = multierr.Append(d.errs, err)
	return err
}

// lookup finds the consumer of h. Handlers that are not comparable,
// such as EventHandlerFunc, are never found.
func (d *Disruptor[T]) lookup(h EventHandler[T]) *consumer[T] {
	if !reflect.ValueOf(h).Comparable() {
		return nil
	}
	for _, c := range d.consumers {
		if reflect.TypeOf(c.handler) == reflect.TypeOf(h) && reflect.ValueOf(c.handler).Comparable() && c.handler == h {
			return c
		}
	}
	return nil
}

func handlerName(h any, idx int) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T#%d", h, idx)
}

// Start gates the ring buffer on the last stage of handlers and runs every
// processor on the executor. It returns the ring buffer for producers.
//
// Start fails if any earlier HandleEventsWith, Then or After call failed,
// if no handler was registered, or if it was already called.
func (d *Disruptor[T]) Start() (*RingBuffer[T], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started.Load() {
		return nil, ErrAlreadyStarted
	}
	if d.errs != nil {
		return nil, d.errs
	}
	if len(d.consumers) == 0 {
		return nil, ErrMissingHandlers
	}
	if d.collector != nil {
		if err := d.registerer.Register(d.collector); err != nil {
			return nil, fmt.Errorf("register metrics for %s: %w", d.name, err)
		}
	}

	for _, c := range d.consumers {
		if c.endOfChain {
			d.ringBuffer.AddGatingSequences(c.processor.Sequence())
		}
	}
	d.started.Store(true)

	for _, c := range d.consumers {
		p, name := c.processor, c.name
		err := d.executor.Execute(func() {
			if err := p.Run(); err != nil {
				d.logger.Errorf("disruptor %s: processor %s: %v", d.name, name, err)
			}
		})
		if err != nil {
			d.haltLocked()
			return nil, fmt.Errorf("start processor %s: %w", name, err)
		}
		c.submitted = true
	}
	d.logger.Debugf("disruptor %s started with %d processors, buffer size %d",
		d.name, len(d.consumers), d.ringBuffer.BufferSize())
	return d.ringBuffer, nil
}

// RingBuffer returns the ring buffer once the disruptor is started.
func (d *Disruptor[T]) RingBuffer() (*RingBuffer[T], error) {
	if !d.started.Load() {
		return nil, ErrNotStarted
	}
	return d.ringBuffer, nil
}

// PublishEvent publishes one event through tr.
func (d *Disruptor[T]) PublishEvent(tr EventTranslator[T]) error {
	rb, err := d.RingBuffer()
	if err != nil {
		return err
	}
	return rb.PublishEvent(tr)
}

// Cursor returns the ring buffer cursor.
func (d *Disruptor[T]) Cursor() int64 {
	return d.ringBuffer.Cursor()
}

// BufferSize returns the ring buffer size.
func (d *Disruptor[T]) BufferSize() int {
	return d.ringBuffer.BufferSize()
}

// SequenceValueFor returns the last sequence handled by h.
func (d *Disruptor[T]) SequenceValueFor(h EventHandler[T]) (int64, error) {
	d.mu.Lock()
	c := d.lookup(h)
	d.mu.Unlock()
	if c == nil {
		return InitialSequenceValue, fmt.Errorf("sequence of %T: %w", h, ErrUnknownHandler)
	}
	return c.processor.Sequence().Get(), nil
}

// Halt stops every processor after its current batch without waiting
// for the backlog to drain.
func (d *Disruptor[T]) Halt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.haltLocked()
}

func (d *Disruptor[T]) haltLocked() {
	for _, c := range d.consumers {
		c.processor.Halt()
	}
}

// Shutdown waits until every published event has been handled, then
// halts the processors and waits for them to stop.
func (d *Disruptor[T]) Shutdown() {
	_ = d.ShutdownContext(context.Background())
}

// ShutdownContext is Shutdown bounded by ctx. If ctx ends first the
// processors are still halted and ctx.Err() is returned.
func (d *Disruptor[T]) ShutdownContext(ctx context.Context) error {
	if !d.started.Load() {
		return ErrNotStarted
	}
	drainErr := d.drain(ctx)

	d.mu.Lock()
	d.haltLocked()
	consumers := make([]*consumer[T], 0, len(d.consumers))
	for _, c := range d.consumers {
		if c.submitted {
			consumers = append(consumers, c)
		}
	}
	d.mu.Unlock()

	var err error
	for _, c := range consumers {
		select {
		case <-c.processor.Done():
		case <-ctx.Done():
			err = ctx.Err()
		}
		if err != nil {
			break
		}
	}
	if d.collector != nil {
		d.registerer.Unregister(d.collector)
	}
	d.logger.Debugf("disruptor %s shut down at cursor %d", d.name, d.ringBuffer.Cursor())
	if drainErr != nil {
		return drainErr
	}
	return err
}

// drain polls until no live end-of-chain handler has a backlog. Handlers
// that were halted or have not been submitted do not count.
func (d *Disruptor[T]) drain(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for d.hasBacklog() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (d *Disruptor[T]) hasBacklog() bool {
	cursor := d.ringBuffer.Cursor()
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.consumers {
		if c.endOfChain && c.submitted && active(c.processor.State()) && c.processor.Sequence().Get() < cursor {
			return true
		}
	}
	return false
}

// active reports whether a submitted processor is still going to consume.
func active(s ProcessorState) bool {
	return s == StateIdle || s == StateRunning
}
