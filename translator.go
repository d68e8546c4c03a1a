package disruptor

// EventFactory creates the events a ring buffer is pre-filled with.
type EventFactory[T any] func() T

// EventTranslator fills a claimed slot in place.
type EventTranslator[T any] interface {
	TranslateTo(event *T, sequence int64) error
}

// EventTranslatorFunc adapts a function into an EventTranslator.
type EventTranslatorFunc[T any] func(event *T, sequence int64) error

// TranslateTo calls f.
func (f EventTranslatorFunc[T]) TranslateTo(event *T, sequence int64) error {
	return f(event, sequence)
}

// EventTranslatorOneArg fills a claimed slot from one argument.
type EventTranslatorOneArg[T, A any] interface {
	TranslateTo(event *T, sequence int64, arg A) error
}

// EventTranslatorOneArgFunc adapts a function into an EventTranslatorOneArg.
type EventTranslatorOneArgFunc[T, A any] func(event *T, sequence int64, arg A) error

// TranslateTo calls f.
func (f EventTranslatorOneArgFunc[T, A]) TranslateTo(event *T, sequence int64, arg A) error {
	return f(event, sequence, arg)
}

// EventTranslatorTwoArg fills a claimed slot from two arguments.
type EventTranslatorTwoArg[T, A, B any] interface {
	TranslateTo(event *T, sequence int64, arg0 A, arg1 B) error
}

// EventTranslatorTwoArgFunc adapts a function into an EventTranslatorTwoArg.
type EventTranslatorTwoArgFunc[T, A, B any] func(event *T, sequence int64, arg0 A, arg1 B) error

// TranslateTo calls f.
func (f EventTranslatorTwoArgFunc[T, A, B]) TranslateTo(event *T, sequence int64, arg0 A, arg1 B) error {
	return f(event, sequence, arg0, arg1)
}

// EventTranslatorVararg fills a claimed slot from untyped arguments.
type EventTranslatorVararg[T any] interface {
	TranslateTo(event *T, sequence int64, args ...any) error
}

// EventTranslatorVarargFunc adapts a function into an EventTranslatorVararg.
type EventTranslatorVarargFunc[T any] func(event *T, sequence int64, args ...any) error

// TranslateTo calls f.
func (f EventTranslatorVarargFunc[T]) TranslateTo(event *T, sequence int64, args ...any) error {
	return f(event, sequence, args...)
}

// PublishEventOneArg claims a slot, translates arg into it and publishes.
func PublishEventOneArg[T, A any](rb *RingBuffer[T], tr EventTranslatorOneArg[T, A], arg A) error {
	seq := rb.Next()
	return rb.translate(seq, seq, func(seq int64) error {
		return tr.TranslateTo(rb.Get(seq), seq, arg)
	})
}

// TryPublishEventOneArg is PublishEventOneArg without blocking.
// It returns ErrInsufficientCapacity if the buffer is full.
func TryPublishEventOneArg[T, A any](rb *RingBuffer[T], tr EventTranslatorOneArg[T, A], arg A) error {
	seq, err := rb.TryNext()
	if err != nil {
		return err
	}
	return rb.translate(seq, seq, func(seq int64) error {
		return tr.TranslateTo(rb.Get(seq), seq, arg)
	})
}

// PublishEventTwoArg claims a slot, translates both arguments into it
// and publishes.
func PublishEventTwoArg[T, A, B any](rb *RingBuffer[T], tr EventTranslatorTwoArg[T, A, B], arg0 A, arg1 B) error {
	seq := rb.Next()
	return rb.translate(seq, seq, func(seq int64) error {
		return tr.TranslateTo(rb.Get(seq), seq, arg0, arg1)
	})
}

// PublishEventsOneArg claims len(args) slots at once, translates one
// argument into each and publishes the whole run.
// A failed translation aborts the whole run; see TranslateError.
func PublishEventsOneArg[T, A any](rb *RingBuffer[T], tr EventTranslatorOneArg[T, A], args ...A) error {
	if len(args) == 0 {
		return nil
	}
	hi, err := rb.NextN(len(args))
	if err != nil {
		return err
	}
	lo := hi - int64(len(args)) + 1
	return rb.translate(lo, hi, func(seq int64) error {
		return tr.TranslateTo(rb.Get(seq), seq, args[seq-lo])
	})
}
