package disruptor

import (
	"golang.org/x/sys/cpu"
)

// RingBuffer is a fixed-size, pre-allocated circular array of events.
//
// A producer claims a sequence with Next, fills the slot returned by Get
// and makes it visible with Publish. The producer never claims a slot
// that the slowest gating consumer has not passed yet; when the buffer is
// full Next spins until space frees up.
type RingBuffer[T any] struct {
	_         cpu.CacheLinePad
	indexMask int64
	entries   []T
	factory   EventFactory[T]
	sequencer sequencer
	_         cpu.CacheLinePad
}

// NewRingBuffer returns a ring buffer of bufferSize slots, each filled
// by factory. A nil factory leaves the slots at their zero value.
// bufferSize must be a positive power of two.
func NewRingBuffer[T any](factory EventFactory[T], bufferSize int, opts ...Option) (*RingBuffer[T], error) {
	return newRingBuffer(factory, bufferSize, loadOptions(opts...))
}

// NewSingleProducerRingBuffer returns a ring buffer for one producer goroutine.
func NewSingleProducerRingBuffer[T any](factory EventFactory[T], bufferSize int, ws WaitStrategy) (*RingBuffer[T], error) {
	return NewRingBuffer(factory, bufferSize, WithProducerType(SingleProducer), WithWaitStrategy(ws))
}

// NewMultiProducerRingBuffer returns a ring buffer safe for concurrent producers.
func NewMultiProducerRingBuffer[T any](factory EventFactory[T], bufferSize int, ws WaitStrategy) (*RingBuffer[T], error) {
	return NewRingBuffer(factory, bufferSize, WithProducerType(MultiProducer), WithWaitStrategy(ws))
}

func newRingBuffer[T any](factory EventFactory[T], bufferSize int, o *options) (*RingBuffer[T], error) {
	if bufferSize <= 0 || bufferSize&(bufferSize-1) != 0 {
		return nil, ErrCapacity
	}
	size := int64(bufferSize)
	var s sequencer
	switch o.producerType {
	case MultiProducer:
		s = newMultiProducerSequencer(size, o.waitStrategy, o.producerYield)
	default:
		s = newSingleProducerSequencer(size, o.waitStrategy, o.producerYield)
	}
	rb := &RingBuffer[T]{
		indexMask: size - 1,
		entries:   make([]T, bufferSize),
		factory:   factory,
		sequencer: s,
	}
	if factory != nil {
		for i := range rb.entries {
			rb.entries[i] = factory()
		}
	}
	return rb, nil
}

// Get returns the slot for seq.
// Producers may write to it between claiming seq and publishing it.
func (rb *RingBuffer[T]) Get(seq int64) *T {
	return &rb.entries[seq&rb.indexMask]
}

// Next claims the next slot and returns its sequence.
// Blocks while the buffer is full.
func (rb *RingBuffer[T]) Next() int64 {
	return rb.sequencer.Next()
}

// NextN claims n contiguous slots and returns the sequence of the last one.
// The first is NextN(n) - n + 1.
func (rb *RingBuffer[T]) NextN(n int) (int64, error) {
	return rb.sequencer.NextN(n)
}

// TryNext claims the next slot without blocking.
// It returns ErrInsufficientCapacity if the buffer is full.
func (rb *RingBuffer[T]) TryNext() (int64, error) {
	return rb.sequencer.TryNext()
}

// TryNextN claims n contiguous slots without blocking.
func (rb *RingBuffer[T]) TryNextN(n int) (int64, error) {
	return rb.sequencer.TryNextN(n)
}

// Publish makes the event at seq visible to consumers.
// Every write to the slot made before Publish is visible to a consumer
// that observes seq.
func (rb *RingBuffer[T]) Publish(seq int64) {
	rb.sequencer.Publish(seq)
}

// PublishRange publishes the claimed run [lo, hi].
func (rb *RingBuffer[T]) PublishRange(lo, hi int64) {
	rb.sequencer.PublishRange(lo, hi)
}

// PublishEvent claims a slot, lets tr fill it and publishes it.
//
// If tr fails, the claim is rolled back when possible and a
// *TranslateError is returned; see TranslateError for the details.
func (rb *RingBuffer[T]) PublishEvent(tr EventTranslator[T]) error {
	seq := rb.Next()
	return rb.translate(seq, seq, func(seq int64) error {
		return tr.TranslateTo(rb.Get(seq), seq)
	})
}

// TryPublishEvent is PublishEvent without blocking.
func (rb *RingBuffer[T]) TryPublishEvent(tr EventTranslator[T]) error {
	seq, err := rb.TryNext()
	if err != nil {
		return err
	}
	return rb.translate(seq, seq, func(seq int64) error {
		return tr.TranslateTo(rb.Get(seq), seq)
	})
}

// PublishEventVararg claims a slot, lets tr fill it from args and publishes it.
func (rb *RingBuffer[T]) PublishEventVararg(tr EventTranslatorVararg[T], args ...any) error {
	seq := rb.Next()
	return rb.translate(seq, seq, func(seq int64) error {
		return tr.TranslateTo(rb.Get(seq), seq, args...)
	})
}

// PublishEvents claims one slot per translator in a single claim and
// publishes them together. A failed translation aborts the whole run.
func (rb *RingBuffer[T]) PublishEvents(trs ...EventTranslator[T]) error {
	if len(trs) == 0 {
		return nil
	}
	hi, err := rb.NextN(len(trs))
	if err != nil {
		return err
	}
	lo := hi - int64(len(trs)) + 1
	return rb.translate(lo, hi, func(seq int64) error {
		return trs[seq-lo].TranslateTo(rb.Get(seq), seq)
	})
}

// translate fills every slot of the claimed run [lo, hi] and publishes
// the run. A fill that fails or panics aborts the whole run; a panic is
// reported as a *PanicError inside the *TranslateError.
func (rb *RingBuffer[T]) translate(lo, hi int64, fill func(seq int64) error) (err error) {
	seq := lo
	defer func() {
		if r := recover(); r != nil {
			err = rb.abort(lo, hi, seq, newPanicError(r))
		}
	}()
	for ; seq <= hi; seq++ {
		if ferr := fill(seq); ferr != nil {
			return rb.abort(lo, hi, seq, ferr)
		}
	}
	if lo == hi {
		rb.sequencer.Publish(hi)
	} else {
		rb.sequencer.PublishRange(lo, hi)
	}
	return nil
}

// abort resets the claimed run and gives it back. If other producers
// have claimed past it, the reset run is published instead so that
// consumers are not stalled behind it.
func (rb *RingBuffer[T]) abort(lo, hi, failed int64, err error) error {
	for seq := lo; seq <= hi; seq++ {
		rb.entries[seq&rb.indexMask] = rb.newEvent()
	}
	if rb.sequencer.release(lo, hi) {
		return &TranslateError{Sequence: failed, Relinquished: true, Err: err}
	}
	rb.sequencer.PublishRange(lo, hi)
	return &TranslateError{Sequence: failed, Err: err}
}

func (rb *RingBuffer[T]) newEvent() T {
	if rb.factory != nil {
		return rb.factory()
	}
	var zero T
	return zero
}

// Cursor returns the highest published sequence for a single producer
// buffer, or the highest claimed sequence for a multi producer buffer.
func (rb *RingBuffer[T]) Cursor() int64 {
	return rb.sequencer.Cursor()
}

// BufferSize returns the number of slots.
func (rb *RingBuffer[T]) BufferSize() int {
	return rb.sequencer.BufferSize()
}

// RemainingCapacity returns the number of slots that can be claimed
// without waiting.
func (rb *RingBuffer[T]) RemainingCapacity() int64 {
	return rb.sequencer.RemainingCapacity()
}

// HasAvailableCapacity reports whether n slots can be claimed without waiting.
func (rb *RingBuffer[T]) HasAvailableCapacity(n int) bool {
	return rb.sequencer.HasAvailableCapacity(n)
}

// IsPublished reports whether seq has been published.
func (rb *RingBuffer[T]) IsPublished(seq int64) bool {
	return rb.sequencer.IsAvailable(seq)
}

// AddGatingSequences adds consumer sequences the producer must not overtake.
func (rb *RingBuffer[T]) AddGatingSequences(seqs ...*Sequence) {
	rb.sequencer.AddGatingSequences(seqs...)
}

// RemoveGatingSequence removes seq from the gating set.
func (rb *RingBuffer[T]) RemoveGatingSequence(seq *Sequence) bool {
	return rb.sequencer.RemoveGatingSequence(seq)
}

// MinimumGatingSequence returns the position of the slowest gating
// consumer, or the cursor if there is none.
func (rb *RingBuffer[T]) MinimumGatingSequence() int64 {
	return rb.sequencer.MinimumSequence()
}

// NewBarrier returns a barrier for a consumer depending on deps.
// With no deps the consumer depends on the cursor only.
func (rb *RingBuffer[T]) NewBarrier(deps ...*Sequence) *SequenceBarrier {
	var ws WaitStrategy
	switch s := rb.sequencer.(type) {
	case *singleProducerSequencer:
		ws = s.waitStrategy
	case *multiProducerSequencer:
		ws = s.waitStrategy
	}
	return newSequenceBarrier(rb.sequencer, ws, rb.sequencer.cursorSequence(), deps)
}
