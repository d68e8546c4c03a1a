// Package barrier provides read-only views over sequences.
package barrier

import "math"

// Barrier is a read-only sequence.
type Barrier interface {
	Load() int64
}

// MinimumBarrier loads the minimum from a set of read-only sequences.
// An empty MinimumBarrier loads math.MaxInt64, so it never gates anything.
type MinimumBarrier []Barrier

// Load returns the smallest value currently held by the set.
func (m MinimumBarrier) Load() int64 {
	return Minimum(m, math.MaxInt64)
}

// Minimum returns the smallest of fallback and every value in bs.
func Minimum[B Barrier](bs []B, fallback int64) int64 {
	if len(bs) == 0 {
		return fallback
	}
	// INVARIANT: loaded values are sequences, far from overflow.
	minimum := bs[0].Load()
	for i := 1; i < len(bs); i++ {
		seq := bs[i].Load()
		diff := minimum - seq
		mask := diff >> 63 // arithmetic right shift: 0 if diff>=0, -1 if diff<0
		minimum = seq + (diff & mask)
	}
	if fallback < minimum {
		return fallback
	}
	return minimum
}

// Of returns the narrowest Barrier over bs.
// A single barrier is returned as is.
func Of(bs ...Barrier) Barrier {
	if len(bs) == 1 {
		return bs[0]
	}
	return MinimumBarrier(bs)
}
