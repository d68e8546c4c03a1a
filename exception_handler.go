package disruptor

import (
	"sync/atomic"

	"github.com/ringwire/disruptor/logging"
)

// ExceptionHandler is told about handler failures.
// A processor always moves past a failed event after reporting it.
type ExceptionHandler interface {
	// HandleEventException reports a failed OnEvent. event is the *T
	// being processed, or nil if the failure happened while waiting.
	HandleEventException(err error, sequence int64, event any)
	// HandleOnStartException reports a failed LifecycleAware.OnStart.
	HandleOnStartException(err error)
	// HandleOnShutdownException reports a failed LifecycleAware.OnShutdown.
	HandleOnShutdownException(err error)
}

// LoggingExceptionHandler logs failures at error level and moves on.
// It is the default.
type LoggingExceptionHandler struct {
	Logger logging.Logger
}

func (h *LoggingExceptionHandler) logger() logging.Logger {
	if h.Logger == nil {
		return logging.GetDefaultLogger()
	}
	return h.Logger
}

// HandleEventException implements ExceptionHandler.
func (h *LoggingExceptionHandler) HandleEventException(err error, sequence int64, event any) {
	h.logger().Errorf("exception processing sequence %d (event %v): %v", sequence, event, err)
}

// HandleOnStartException implements ExceptionHandler.
func (h *LoggingExceptionHandler) HandleOnStartException(err error) {
	h.logger().Errorf("exception during OnStart: %v", err)
}

// HandleOnShutdownException implements ExceptionHandler.
func (h *LoggingExceptionHandler) HandleOnShutdownException(err error) {
	h.logger().Errorf("exception during OnShutdown: %v", err)
}

// IgnoreExceptionHandler drops every failure.
type IgnoreExceptionHandler struct{}

func (IgnoreExceptionHandler) HandleEventException(error, int64, any) {}
func (IgnoreExceptionHandler) HandleOnStartException(error)          {}
func (IgnoreExceptionHandler) HandleOnShutdownException(error)       {}

// ExceptionHandlerFuncs builds an ExceptionHandler from functions.
// Nil fields ignore the failure.
type ExceptionHandlerFuncs struct {
	OnEvent    func(err error, sequence int64, event any)
	OnStart    func(err error)
	OnShutdown func(err error)
}

// HandleEventException implements ExceptionHandler.
func (f ExceptionHandlerFuncs) HandleEventException(err error, sequence int64, event any) {
	if f.OnEvent != nil {
		f.OnEvent(err, sequence, event)
	}
}

// HandleOnStartException implements ExceptionHandler.
func (f ExceptionHandlerFuncs) HandleOnStartException(err error) {
	if f.OnStart != nil {
		f.OnStart(err)
	}
}

// HandleOnShutdownException implements ExceptionHandler.
func (f ExceptionHandlerFuncs) HandleOnShutdownException(err error) {
	if f.OnShutdown != nil {
		f.OnShutdown(err)
	}
}

// countingExceptionHandler counts failures before passing them on.
type countingExceptionHandler struct {
	next  ExceptionHandler
	count atomic.Uint64
}

func (h *countingExceptionHandler) HandleEventException(err error, sequence int64, event any) {
	h.count.Add(1)
	h.next.HandleEventException(err, sequence, event)
}

func (h *countingExceptionHandler) HandleOnStartException(err error) {
	h.count.Add(1)
	h.next.HandleOnStartException(err)
}

func (h *countingExceptionHandler) HandleOnShutdownException(err error) {
	h.count.Add(1)
	h.next.HandleOnShutdownException(err)
}
