package sample

import (
	"math/rand/v2"
	"time"
)

// ConstantDelay sleeps for d.
func ConstantDelay(d time.Duration) func() {
	return func() {
		time.Sleep(d)
	}
}

// RandomDelay sleeps for a uniformly random duration in [lo, hi).
func RandomDelay(lo, hi time.Duration) func() {
	if hi <= lo {
		return ConstantDelay(lo)
	}
	return func() {
		time.Sleep(lo + rand.N(hi-lo))
	}
}
