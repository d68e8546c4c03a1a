package disruptor

import (
	"errors"
	"runtime"

	"github.com/ringwire/disruptor/internal/lifecycle"
	"github.com/ringwire/disruptor/logging"
)

// DataProvider returns the event stored at a sequence.
// *RingBuffer implements it.
type DataProvider[T any] interface {
	Get(seq int64) *T
}

// ProcessorState is the run state of a BatchEventProcessor.
type ProcessorState = lifecycle.State

// Run states reported by BatchEventProcessor.State.
const (
	StateIdle          = lifecycle.Idle
	StateRunning       = lifecycle.Running
	StateHaltRequested = lifecycle.HaltRequested
	StateStopped       = lifecycle.Stopped
)

// BatchEventProcessor runs one EventHandler against a ring buffer.
//
// Each pass of the loop waits on the barrier for the next sequence, hands
// every available event to the handler and then advances the processor's
// own sequence once for the whole batch.
type BatchEventProcessor[T any] struct {
	sequence Sequence
	provider DataProvider[T]
	barrier  *SequenceBarrier
	handler  EventHandler[T]

	exceptionHandler ExceptionHandler
	batchStart       BatchStartAware
	timeout          TimeoutHandler
	lifecycleAware   LifecycleAware

	state lifecycle.Machine
}

// NewBatchEventProcessor returns an idle processor delivering events from
// provider to handler as barrier makes them available.
func NewBatchEventProcessor[T any](provider DataProvider[T], barrier *SequenceBarrier, handler EventHandler[T]) *BatchEventProcessor[T] {
	p := &BatchEventProcessor[T]{
		provider:         provider,
		barrier:          barrier,
		handler:          handler,
		exceptionHandler: &LoggingExceptionHandler{Logger: logging.GetDefaultLogger()},
	}
	p.sequence.Set(InitialSequenceValue)
	p.batchStart, _ = handler.(BatchStartAware)
	p.timeout, _ = handler.(TimeoutHandler)
	p.lifecycleAware, _ = handler.(LifecycleAware)
	return p
}

// SetExceptionHandler replaces the exception handler. Call it before Run.
func (p *BatchEventProcessor[T]) SetExceptionHandler(h ExceptionHandler) {
	if h != nil {
		p.exceptionHandler = h
	}
}

// Sequence returns the last sequence the processor has fully handled.
// Downstream barriers and producers gate on it.
func (p *BatchEventProcessor[T]) Sequence() *Sequence {
	return &p.sequence
}

// Barrier returns the barrier the processor waits on.
func (p *BatchEventProcessor[T]) Barrier() *SequenceBarrier {
	return p.barrier
}

// Handler returns the handler the processor delivers to.
func (p *BatchEventProcessor[T]) Handler() EventHandler[T] {
	return p.handler
}

// State returns the current run state.
func (p *BatchEventProcessor[T]) State() ProcessorState {
	return p.state.Load()
}

// IsRunning reports whether the loop is running and has not been asked to halt.
func (p *BatchEventProcessor[T]) IsRunning() bool {
	return p.state.Load() == StateRunning
}

// Done returns a channel closed once the processor has stopped.
func (p *BatchEventProcessor[T]) Done() <-chan struct{} {
	return p.state.Done()
}

// Halt asks the loop to stop once the current batch is handled.
// It does not wait; use Done for that.
func (p *BatchEventProcessor[T]) Halt() {
	p.state.RequestHalt()
	p.barrier.Alert()
}

// Run processes events on the calling goroutine until Halt is called.
// A processor that was halted before Run returns immediately.
// Run may be called again after the processor has stopped; it resumes
// after the last handled sequence.
func (p *BatchEventProcessor[T]) Run() error {
	switch p.state.Start() {
	case lifecycle.AlreadyRunning:
		return ErrAlreadyRunning
	case lifecycle.HaltedBeforeStart:
		p.notifyStart()
		p.notifyShutdown()
		return nil
	}
	defer p.state.Stop()

	p.barrier.ClearAlert()
	p.notifyStart()
	defer p.notifyShutdown()

	// Halt stores the state before alerting, so a halt that raced with
	// ClearAlert is still seen here.
	if p.state.IsHaltRequested() {
		return nil
	}
	p.processEvents()
	return nil
}

func (p *BatchEventProcessor[T]) processEvents() {
	next := p.sequence.Get() + 1
	for {
		available, err := p.barrier.WaitFor(next)
		switch {
		case err == nil:
		case errors.Is(err, ErrAlerted):
			if p.state.IsHaltRequested() {
				return
			}
			// Alerted by someone other than Halt.
			p.barrier.ClearAlert()
			if p.state.IsHaltRequested() {
				return
			}
			continue
		case errors.Is(err, ErrTimeout):
			p.notifyTimeout(p.sequence.Get())
			continue
		default:
			p.exceptionHandler.HandleEventException(err, next, nil)
			p.sequence.Set(next)
			next++
			continue
		}

		if available < next {
			runtime.Gosched()
			continue
		}
		if p.batchStart != nil {
			p.batchStart.OnBatchStart(available - next + 1)
		}
		for ; next <= available; next++ {
			event := p.provider.Get(next)
			if err := p.onEvent(event, next, next == available); err != nil {
				p.exceptionHandler.HandleEventException(err, next, event)
			}
		}
		p.sequence.Set(available)
	}
}

func (p *BatchEventProcessor[T]) onEvent(event *T, seq int64, endOfBatch bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return p.handler.OnEvent(event, seq, endOfBatch)
}

func (p *BatchEventProcessor[T]) notifyTimeout(seq int64) {
	if p.timeout == nil {
		return
	}
	if err := p.timeout.OnTimeout(seq); err != nil {
		p.exceptionHandler.HandleEventException(err, seq, nil)
	}
}

func (p *BatchEventProcessor[T]) notifyStart() {
	if p.lifecycleAware == nil {
		return
	}
	if err := p.lifecycleAware.OnStart(); err != nil {
		p.exceptionHandler.HandleOnStartException(err)
	}
}

func (p *BatchEventProcessor[T]) notifyShutdown() {
	if p.lifecycleAware == nil {
		return
	}
	if err := p.lifecycleAware.OnShutdown(); err != nil {
		p.exceptionHandler.HandleOnShutdownException(err)
	}
}
