package disruptor

// EventHandler consumes events published to a ring buffer.
//
// OnEvent is called once per sequence in strictly increasing order.
// endOfBatch is true for the last event currently available, so a handler
// can defer expensive work such as flushing until a batch is complete.
// The event must not be retained after OnEvent returns; the slot is reused.
type EventHandler[T any] interface {
	OnEvent(event *T, sequence int64, endOfBatch bool) error
}

// EventHandlerFunc adapts a function into an EventHandler.
//
// Functions are not comparable, so an EventHandlerFunc cannot be looked up
// again with After or SequenceValueFor.
type EventHandlerFunc[T any] func(event *T, sequence int64, endOfBatch bool) error

// OnEvent calls f.
func (f EventHandlerFunc[T]) OnEvent(event *T, sequence int64, endOfBatch bool) error {
	return f(event, sequence, endOfBatch)
}

// LifecycleAware handlers are notified when their processor starts and
// stops. Both calls happen on the processor goroutine.
type LifecycleAware interface {
	OnStart() error
	OnShutdown() error
}

// TimeoutHandler handlers are notified when a TimeoutBlockingWaitStrategy
// gives up waiting. sequence is the last sequence processed.
type TimeoutHandler interface {
	OnTimeout(sequence int64) error
}

// BatchStartAware handlers are told the size of each batch before its
// first event.
type BatchStartAware interface {
	OnBatchStart(batchSize int64)
}

// Named handlers provide the label used for them in metrics.
type Named interface {
	Name() string
}
