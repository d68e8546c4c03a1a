package disruptor

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// InitialSequenceValue is the value of a sequence that has seen nothing.
const InitialSequenceValue int64 = -1

// Sequence is a padded atomic position counter.
// It is used as the producer cursor, as a processor's progress,
// and as a gating reference the producer must not overtake.
type Sequence struct {
	_     cpu.CacheLinePad
	value atomic.Int64
	_     cpu.CacheLinePad
}

// NewSequence returns a sequence holding initial.
func NewSequence(initial int64) *Sequence {
	s := &Sequence{}
	s.value.Store(initial)
	return s
}

// Get atomically reads the sequence.
func (s *Sequence) Get() int64 {
	return s.value.Load()
}

// Load is Get. It lets a *Sequence act as a read-only dependency.
func (s *Sequence) Load() int64 {
	return s.value.Load()
}

// Set atomically stores v.
// The store publishes every write made before it to goroutines
// that observe v.
func (s *Sequence) Set(v int64) {
	s.value.Store(v)
}

// CompareAndSet sets the sequence to next if it currently holds expected.
func (s *Sequence) CompareAndSet(expected, next int64) bool {
	return s.value.CompareAndSwap(expected, next)
}

// AddAndGet atomically adds delta and returns the new value.
func (s *Sequence) AddAndGet(delta int64) int64 {
	return s.value.Add(delta)
}

// IncrementAndGet atomically adds one and returns the new value.
func (s *Sequence) IncrementAndGet() int64 {
	return s.value.Add(1)
}

func (s *Sequence) String() string {
	return strconv.FormatInt(s.Get(), 10)
}
