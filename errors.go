package disruptor

import (
	"fmt"
	"runtime/debug"
)

var (
	// ErrCapacity is the error corresponding to wrong capacity.
	ErrCapacity = fmt.Errorf("capacity must be a positive power of two")

	// ErrMissingHandlers is returned by Start when no handler
	// was registered with the disruptor.
	ErrMissingHandlers = fmt.Errorf("missing event handler(s)")

	// ErrEmptyHandlerGroup is the error corresponding to an empty
	// handler group.
	ErrEmptyHandlerGroup = fmt.Errorf("handler group is empty")

	// ErrDuplicateHandler is returned when the same handler is
	// registered twice with one disruptor.
	ErrDuplicateHandler = fmt.Errorf("handler is already registered")

	// ErrUnknownHandler is returned when a handler is looked up
	// but was never registered.
	ErrUnknownHandler = fmt.Errorf("handler is not registered")

	// ErrAlreadyStarted is returned when the graph is modified or
	// started after Start was called.
	ErrAlreadyStarted = fmt.Errorf("disruptor already started")

	// ErrNotStarted is returned when the ring buffer is requested
	// before Start was called.
	ErrNotStarted = fmt.Errorf("disruptor not started")

	// ErrAlreadyRunning is returned by Run when the processor loop
	// is already owned by another goroutine.
	ErrAlreadyRunning = fmt.Errorf("event processor already running")

	// ErrAlerted is returned by SequenceBarrier.WaitFor once the
	// barrier has been alerted.
	ErrAlerted = fmt.Errorf("sequence barrier alerted")

	// ErrTimeout is returned by timeout wait strategies.
	ErrTimeout = fmt.Errorf("timed out waiting for sequence")

	// ErrInsufficientCapacity is returned by the Try* producer
	// calls when the ring buffer is full.
	ErrInsufficientCapacity = fmt.Errorf("insufficient ring buffer capacity")

	// ErrInvalidCount is returned when claiming less than one or
	// more than the buffer size slots at once.
	ErrInvalidCount = fmt.Errorf("claim count must be between 1 and the buffer size")
)

// PanicError wraps a value recovered from a panicking handler or translator.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the recovered value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// TranslateError is returned when a translator fails to fill a slot.
//
// If Relinquished is true the claim was rolled back and the cursor never
// moved past Sequence. Otherwise another producer had already claimed
// beyond it, so the slot was reset to a fresh event and published to keep
// the sequence contiguous.
type TranslateError struct {
	Sequence     int64
	Relinquished bool
	Err          error
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("translate sequence %d: %v", e.Sequence, e.Err)
}

func (e *TranslateError) Unwrap() error {
	return e.Err
}
