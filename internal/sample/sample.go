// Package sample holds the event type and handlers used by the sample
// scenarios, the tests and the benchmarks.
package sample

import (
	"sync/atomic"

	"github.com/ringwire/disruptor"
)

// Slot is the event carried by the sample ring buffers.
type Slot struct {
	Value byte
}

// NewSlot is the EventFactory for Slot.
func NewSlot() Slot {
	return Slot{}
}

// Copy copies src into dst.
func Copy(dst, src *Slot) {
	*dst = *src
}

// AssignmentTranslator writes its argument into the slot.
var AssignmentTranslator = disruptor.EventTranslatorOneArgFunc[Slot, byte](func(slot *Slot, _ int64, v byte) error {
	slot.Value = v
	return nil
})

// Publish publishes n copies of v through AssignmentTranslator and
// returns the last published sequence.
func Publish(rb *disruptor.RingBuffer[Slot], n int, v byte) (int64, error) {
	for range n {
		if err := disruptor.PublishEventOneArg[Slot, byte](rb, AssignmentTranslator, v); err != nil {
			return rb.Cursor(), err
		}
	}
	return rb.Cursor(), nil
}

// PublishDirect publishes n copies of v with Next, Get and Publish.
func PublishDirect(rb *disruptor.RingBuffer[Slot], n int, v byte) int64 {
	last := disruptor.InitialSequenceValue
	for range n {
		last = rb.Next()
		rb.Get(last).Value = v
		rb.Publish(last)
	}
	return last
}

// BusinessHandler sums the values it sees and records the last sequence.
// Its state can be read while it runs.
type BusinessHandler struct {
	name     string
	sum      atomic.Uint64
	lastSeen atomic.Int64
	count    atomic.Int64

	// Delay, if set, is called once per event to simulate work.
	Delay func()
}

// NewBusinessHandler returns a handler that has seen nothing.
func NewBusinessHandler(name string) *BusinessHandler {
	h := &BusinessHandler{name: name}
	h.lastSeen.Store(disruptor.InitialSequenceValue)
	return h
}

func (h *BusinessHandler) OnEvent(slot *Slot, seq int64, _ bool) error {
	if h.Delay != nil {
		h.Delay()
	}
	h.sum.Add(uint64(slot.Value))
	h.count.Add(1)
	h.lastSeen.Store(seq)
	return nil
}

// Name implements disruptor.Named.
func (h *BusinessHandler) Name() string { return h.name }

// Sum returns the sum of every value seen.
func (h *BusinessHandler) Sum() uint64 { return h.sum.Load() }

// Count returns the number of events seen.
func (h *BusinessHandler) Count() int64 { return h.count.Load() }

// LastSeen returns the last sequence seen, or -1.
func (h *BusinessHandler) LastSeen() int64 { return h.lastSeen.Load() }
