// Package disruptor provides an implementation of the LMAX Disruptor.
//
// If for some reason you have Go code that needs to process messages at
// sub-microsecond latency, where shaving every nanosecond counts, then
// consider the disruptor pattern.
//
// A RingBuffer holds pre-allocated events. Producers claim a slot, fill it
// in place and publish it:
//
//	seq := rb.Next()
//	rb.Get(seq).Value = 42
//	rb.Publish(seq)
//
// Consumers are EventHandlers run by a BatchEventProcessor each. A
// Disruptor wires them into a graph:
//
//	d, _ := disruptor.New(newEvent, 1024, disruptor.GoroutineExecutor{})
//	d.HandleEventsWith(journal, replicate).Then(business)
//	rb, _ := d.Start()
//	defer d.Shutdown()
//
// The producer never overwrites a slot the last stage of handlers has not
// handled yet; when the buffer is full, Next waits.
package disruptor
