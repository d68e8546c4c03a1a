package disruptor

import (
	"runtime"
	"sync/atomic"

	"github.com/ringwire/disruptor/internal/barrier"
)

// SequenceBarrier is where a consumer waits for new work.
//
// It tracks the producer cursor and the sequences the consumer depends on.
// A first-stage consumer depends on the cursor alone; a chained consumer
// depends on every processor of the stage before it and moves only as fast
// as the slowest of them.
type SequenceBarrier struct {
	waitStrategy WaitStrategy
	cursor       *Sequence
	dependent    barrier.Barrier
	sequencer    sequencer
	alerted      atomic.Bool
}

func newSequenceBarrier(s sequencer, ws WaitStrategy, cursor *Sequence, deps []*Sequence) *SequenceBarrier {
	var dependent barrier.Barrier = cursor
	if len(deps) > 0 {
		views := make([]barrier.Barrier, len(deps))
		for i, d := range deps {
			views[i] = d
		}
		// Optimize: don't need the MinimumBarrier type if size 1.
		dependent = barrier.Of(views...)
	}
	return &SequenceBarrier{
		waitStrategy: ws,
		cursor:       cursor,
		dependent:    dependent,
		sequencer:    s,
	}
}

// WaitFor blocks until seq is available to this consumer and returns the
// highest sequence that may be read, which can be greater than seq.
// It returns ErrAlerted once the barrier is alerted, and whatever error
// the wait strategy returns, such as ErrTimeout.
//
// With several producers the cursor can pass seq before seq is published.
// WaitFor then yields and waits again rather than returning early.
func (b *SequenceBarrier) WaitFor(seq int64) (int64, error) {
	for {
		if err := b.CheckAlert(); err != nil {
			return InitialSequenceValue, err
		}
		available, err := b.waitStrategy.WaitFor(seq, b.cursor, b.dependent, b)
		if err != nil {
			return available, err
		}
		if available < seq {
			return available, nil
		}
		if published := b.sequencer.HighestPublishedSequence(seq, available); published >= seq {
			return published, nil
		}
		runtime.Gosched()
	}
}

// Cursor returns the minimum of the sequences this barrier depends on.
func (b *SequenceBarrier) Cursor() int64 {
	return b.dependent.Load()
}

// Alert wakes the waiter and makes WaitFor fail with ErrAlerted until
// ClearAlert is called.
func (b *SequenceBarrier) Alert() {
	b.alerted.Store(true)
	b.waitStrategy.SignalAllWhenBlocking()
}

// ClearAlert resets the alert flag.
func (b *SequenceBarrier) ClearAlert() {
	b.alerted.Store(false)
}

// IsAlerted reports whether the barrier is alerted.
func (b *SequenceBarrier) IsAlerted() bool {
	return b.alerted.Load()
}

// CheckAlert implements Alerter.
func (b *SequenceBarrier) CheckAlert() error {
	if b.alerted.Load() {
		return ErrAlerted
	}
	return nil
}
