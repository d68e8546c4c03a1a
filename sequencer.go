package disruptor

import (
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/ringwire/disruptor/internal/barrier"
)

// ProducerType selects the claim strategy of a ring buffer.
type ProducerType int

const (
	// SingleProducer allows exactly one publishing goroutine.
	// Claims are plain arithmetic, no CAS.
	SingleProducer ProducerType = iota
	// MultiProducer allows any number of publishing goroutines.
	MultiProducer
)

func (p ProducerType) String() string {
	switch p {
	case SingleProducer:
		return "single"
	case MultiProducer:
		return "multi"
	default:
		return "unknown"
	}
}

// sequencer claims and publishes sequences for a ring buffer.
type sequencer interface {
	BufferSize() int
	Cursor() int64
	cursorSequence() *Sequence

	Next() int64
	NextN(n int) (int64, error)
	TryNext() (int64, error)
	TryNextN(n int) (int64, error)

	Publish(seq int64)
	PublishRange(lo, hi int64)
	IsAvailable(seq int64) bool
	HighestPublishedSequence(lo, available int64) int64

	RemainingCapacity() int64
	HasAvailableCapacity(n int) bool

	AddGatingSequences(seqs ...*Sequence)
	RemoveGatingSequence(seq *Sequence) bool
	MinimumSequence() int64

	// release rolls back the unpublished claim [lo, hi].
	// It reports false if the claim can no longer be rolled back.
	release(lo, hi int64) bool
}

// defaultProducerYield is how producers wait for consumers to free slots.
func defaultProducerYield(int) {
	runtime.Gosched()
}

// gatingSequences is a copy-on-write set of consumer sequences.
// The producer reads it on every failed capacity check; writers are rare.
type gatingSequences struct {
	seqs atomic.Pointer[[]*Sequence]
}

func (g *gatingSequences) load() []*Sequence {
	if p := g.seqs.Load(); p != nil {
		return *p
	}
	return nil
}

func (g *gatingSequences) add(seqs ...*Sequence) {
	for {
		cur := g.seqs.Load()
		next := append(slices.Clone(g.load()), seqs...)
		if g.seqs.CompareAndSwap(cur, &next) {
			return
		}
	}
}

func (g *gatingSequences) remove(seq *Sequence) bool {
	for {
		cur := g.seqs.Load()
		old := g.load()
		idx := slices.Index(old, seq)
		if idx < 0 {
			return false
		}
		next := slices.Delete(slices.Clone(old), idx, idx+1)
		if g.seqs.CompareAndSwap(cur, &next) {
			return true
		}
	}
}

// minimum returns the slowest gating sequence, capped at fallback.
func (g *gatingSequences) minimum(fallback int64) int64 {
	return barrier.Minimum(g.load(), fallback)
}

func validateClaim(n int, bufferSize int64) error {
	if n < 1 || int64(n) > bufferSize {
		return ErrInvalidCount
	}
	return nil
}
