package disruptor

import (
	"math/bits"
	"sync/atomic"
)

// multiProducerSequencer lets many goroutines claim sequences concurrently.
//
// The cursor is the highest claimed sequence. Publication is tracked per
// slot: availableBuffer[seq&mask] holds the lap number (seq >> indexShift)
// of the last sequence published into the slot, so consumers can find the
// highest contiguous published sequence without a shared publish counter.
type multiProducerSequencer struct {
	bufferSize   int64
	waitStrategy WaitStrategy
	yield        func(spins int)
	gating       gatingSequences

	cursor      Sequence
	gatingCache Sequence

	indexMask       int64
	indexShift      uint
	availableBuffer []atomic.Int32
}

func newMultiProducerSequencer(bufferSize int64, ws WaitStrategy, yield func(int)) *multiProducerSequencer {
	s := &multiProducerSequencer{
		bufferSize:      bufferSize,
		waitStrategy:    ws,
		yield:           yield,
		indexMask:       bufferSize - 1,
		indexShift:      uint(bits.TrailingZeros64(uint64(bufferSize))),
		availableBuffer: make([]atomic.Int32, bufferSize),
	}
	s.cursor.Set(InitialSequenceValue)
	s.gatingCache.Set(InitialSequenceValue)
	for i := range s.availableBuffer {
		s.availableBuffer[i].Store(-1)
	}
	return s
}

func (s *multiProducerSequencer) BufferSize() int          { return int(s.bufferSize) }
func (s *multiProducerSequencer) Cursor() int64            { return s.cursor.Get() }
func (s *multiProducerSequencer) cursorSequence() *Sequence { return &s.cursor }

func (s *multiProducerSequencer) Next() int64 {
	return s.next(1)
}

func (s *multiProducerSequencer) NextN(n int) (int64, error) {
	if err := validateClaim(n, s.bufferSize); err != nil {
		return InitialSequenceValue, err
	}
	return s.next(int64(n)), nil
}

// next claims n sequences first, then waits until the slowest consumer
// has freed them.
func (s *multiProducerSequencer) next(n int64) int64 {
	nextSequence := s.cursor.AddAndGet(n)
	current := nextSequence - n
	wrapPoint := nextSequence - s.bufferSize
	cachedGating := s.gatingCache.Get()

	if wrapPoint > cachedGating || cachedGating > current {
		spins := 0
		gatingSequence := s.gating.minimum(current)
		for wrapPoint > gatingSequence {
			spins++
			s.yield(spins)
			gatingSequence = s.gating.minimum(current)
		}
		s.gatingCache.Set(gatingSequence)
	}
	return nextSequence
}

func (s *multiProducerSequencer) TryNext() (int64, error) {
	return s.TryNextN(1)
}

func (s *multiProducerSequencer) TryNextN(n int) (int64, error) {
	if err := validateClaim(n, s.bufferSize); err != nil {
		return InitialSequenceValue, err
	}
	for {
		current := s.cursor.Get()
		next := current + int64(n)
		if !s.hasAvailableCapacity(int64(n), current) {
			return InitialSequenceValue, ErrInsufficientCapacity
		}
		if s.cursor.CompareAndSet(current, next) {
			return next, nil
		}
	}
}

func (s *multiProducerSequencer) HasAvailableCapacity(n int) bool {
	return s.hasAvailableCapacity(int64(n), s.cursor.Get())
}

func (s *multiProducerSequencer) hasAvailableCapacity(n, cursorValue int64) bool {
	wrapPoint := cursorValue + n - s.bufferSize
	cachedGating := s.gatingCache.Get()
	if wrapPoint > cachedGating || cachedGating > cursorValue {
		minSequence := s.gating.minimum(cursorValue)
		s.gatingCache.Set(minSequence)
		if wrapPoint > minSequence {
			return false
		}
	}
	return true
}

func (s *multiProducerSequencer) RemainingCapacity() int64 {
	produced := s.cursor.Get()
	consumed := s.gating.minimum(produced)
	return s.bufferSize - (produced - consumed)
}

func (s *multiProducerSequencer) Publish(seq int64) {
	s.setAvailable(seq)
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *multiProducerSequencer) PublishRange(lo, hi int64) {
	for seq := lo; seq <= hi; seq++ {
		s.setAvailable(seq)
	}
	s.waitStrategy.SignalAllWhenBlocking()
}

func (s *multiProducerSequencer) setAvailable(seq int64) {
	s.availableBuffer[seq&s.indexMask].Store(int32(seq >> s.indexShift))
}

func (s *multiProducerSequencer) IsAvailable(seq int64) bool {
	return s.availableBuffer[seq&s.indexMask].Load() == int32(seq>>s.indexShift)
}

func (s *multiProducerSequencer) HighestPublishedSequence(lo, available int64) int64 {
	for seq := lo; seq <= available; seq++ {
		if !s.IsAvailable(seq) {
			return seq - 1
		}
	}
	return available
}

func (s *multiProducerSequencer) AddGatingSequences(seqs ...*Sequence) { s.gating.add(seqs...) }
func (s *multiProducerSequencer) RemoveGatingSequence(seq *Sequence) bool {
	return s.gating.remove(seq)
}
func (s *multiProducerSequencer) MinimumSequence() int64 { return s.gating.minimum(s.cursor.Get()) }

// release succeeds only if no other producer has claimed past hi.
func (s *multiProducerSequencer) release(lo, hi int64) bool {
	return s.cursor.CompareAndSet(hi, lo-1)
}
