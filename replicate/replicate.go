// Package replicate forwards the events of one ring buffer into another.
//
// A Replicator is an EventHandler on the primary disruptor that publishes
// a copy of every event it sees into a target ring buffer, typically the
// ring buffer of a second disruptor. The target cursor observed after each
// publish is the replicated position.
package replicate

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ringwire/disruptor"
)

// ErrTargetNotSet is returned when the replicator is used before SetTarget.
var ErrTargetNotSet = errors.New("replicate: target ring buffer not set")

// CopyFunc copies src into the target slot dst.
type CopyFunc[T any] func(dst, src *T)

// Replicator republishes events into a target ring buffer.
type Replicator[T any] struct {
	target     atomic.Pointer[disruptor.RingBuffer[T]]
	translator disruptor.EventTranslatorOneArg[T, *T]
	replicated disruptor.Sequence
}

// New returns a replicator without a target. A nil copyFn copies by value.
func New[T any](copyFn CopyFunc[T]) *Replicator[T] {
	if copyFn == nil {
		copyFn = func(dst, src *T) { *dst = *src }
	}
	r := &Replicator[T]{
		translator: disruptor.EventTranslatorOneArgFunc[T, *T](func(dst *T, _ int64, src *T) error {
			copyFn(dst, src)
			return nil
		}),
	}
	r.replicated.Set(disruptor.InitialSequenceValue)
	return r
}

// SetTarget sets the ring buffer events are replicated into.
func (r *Replicator[T]) SetTarget(rb *disruptor.RingBuffer[T]) {
	r.target.Store(rb)
}

// Target returns the target ring buffer, or ErrTargetNotSet.
func (r *Replicator[T]) Target() (*disruptor.RingBuffer[T], error) {
	rb := r.target.Load()
	if rb == nil {
		return nil, ErrTargetNotSet
	}
	return rb, nil
}

// OnEvent publishes a copy of event into the target. It waits while
// the target is full, so a slow replica slows down the primary.
func (r *Replicator[T]) OnEvent(event *T, _ int64, _ bool) error {
	rb, err := r.Target()
	if err != nil {
		return err
	}
	if err := disruptor.PublishEventOneArg(rb, r.translator, event); err != nil {
		return err
	}
	r.replicated.Set(rb.Cursor())
	return nil
}

// LastReplicatedSequence returns the target cursor seen after the last
// replicated event, or -1 before the first one.
func (r *Replicator[T]) LastReplicatedSequence() int64 {
	return r.replicated.Get()
}

// WaitForReplication waits until the replicated position reaches seq.
func (r *Replicator[T]) WaitForReplication(ctx context.Context, seq int64) error {
	if r.replicated.Get() >= seq {
		return nil
	}
	ticker := time.NewTicker(100 * time.Microsecond)
	defer ticker.Stop()
	for r.replicated.Get() < seq {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
