package disruptor

import (
	"github.com/ringwire/disruptor/internal/pad"
)

// singleProducerSequencer claims sequences for exactly one producer
// goroutine. Claim state lives in plain padded fields owned by that
// goroutine; only the cursor is shared.
type singleProducerSequencer struct {
	bufferSize   int64
	waitStrategy WaitStrategy
	yield        func(spins int)
	gating       gatingSequences

	cursor      Sequence
	nextValue   pad.Int64 // last claimed sequence
	cachedValue pad.Int64 // cached version of the slowest gating sequence
}

func newSingleProducerSequencer(bufferSize int64, ws WaitStrategy, yield func(int)) *singleProducerSequencer {
	s := &singleProducerSequencer{
		bufferSize:   bufferSize,
		waitStrategy: ws,
		yield:        yield,
	}
	s.cursor.Set(InitialSequenceValue)
	s.nextValue.Val = InitialSequenceValue
	s.cachedValue.Val = InitialSequenceValue
	return s
}

func (s *singleProducerSequencer) BufferSize() int          { return int(s.bufferSize) }
func (s *singleProducerSequencer) Cursor() int64            { return s.cursor.Get() }
func (s *singleProducerSequencer) cursorSequence() *Sequence { return &s.cursor }

func (s *singleProducerSequencer) Next() int64 {
	return s.next(1)
}

func (s *singleProducerSequencer) NextN(n int) (int64, error) {
	if err := validateClaim(n, s.bufferSize); err != nil {
		return InitialSequenceValue, err
	}
	return s.next(int64(n)), nil
}

// next blocks until n slots are free, then claims them.
func (s *singleProducerSequencer) next(n int64) int64 {
	nextValue := s.nextValue.Val
	nextSequence := nextValue + n
	wrapPoint := nextSequence - s.bufferSize
	cachedGating := s.cachedValue.Val

	if wrapPoint > cachedGating || cachedGating > nextValue {
		spins := 0
		minSequence := s.gating.minimum(nextValue)
		for wrapPoint > minSequence {
			spins++
			s.yield(spins)
			minSequence = s.gating.minimum(nextValue)
		}
		s.cachedValue.Val = minSequence
	}

	s.nextValue.Val = nextSequence
	return nextSequence
}

func (s *singleProducerSequencer) TryNext() (int64, error) {
	return s.TryNextN(1)
}

func (s *singleProducerSequencer) TryNextN(n int) (int64, error) {
	if err := validateClaim(n, s.bufferSize); err != nil {
		return InitialSequenceValue, err
	}
	if !s.hasAvailableCapacity(int64(n)) {
		return InitialSequenceValue, ErrInsufficientCapacity
	}
	s.nextValue.Val += int64(n)
	return s.nextValue.Val, nil
}

func (s *singleProducerSequencer) HasAvailableCapacity(n int) bool {
	return s.hasAvailableCapacity(int64(n))
}

func (s *singleProducerSequencer) hasAvailableCapacity(n int64) bool {
	nextValue := s.nextValue.Val
	wrapPoint := nextValue + n - s.bufferSize
	cachedGating := s.cachedValue.Val
	if wrapPoint > cachedGating || cachedGating > nextValue {
		minSequence := s.gating.minimum(nextValue)
		s.cachedValue.Val = minSequence
		if wrapPoint > minSequence {
			return false
		}
	}
	return true
}

func (s *singleProducerSequencer) RemainingCapacity() int64 {
	nextValue := s.nextValue.Val
	consumed := s.gating.minimum(nextValue)
	return s.bufferSize - (nextValue - consumed)
}

func (s *singleProducerSequencer) Publish(seq int64) {
	s.cursor.Set(seq)
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *singleProducerSequencer) PublishRange(_, hi int64) {
	s.Publish(hi)
}

func (s *singleProducerSequencer) IsAvailable(seq int64) bool {
	return seq <= s.cursor.Get()
}

func (s *singleProducerSequencer) HighestPublishedSequence(_, available int64) int64 {
	return available
}

func (s *singleProducerSequencer) AddGatingSequences(seqs ...*Sequence) { s.gating.add(seqs...) }
func (s *singleProducerSequencer) RemoveGatingSequence(seq *Sequence) bool {
	return s.gating.remove(seq)
}
func (s *singleProducerSequencer) MinimumSequence() int64 { return s.gating.minimum(s.cursor.Get()) }

func (s *singleProducerSequencer) release(lo, hi int64) bool {
	if s.nextValue.Val != hi {
		return false
	}
	s.nextValue.Val = lo - 1
	return true
}
