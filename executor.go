package disruptor

import (
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/ringwire/disruptor/logging"
)

// Executor runs each processor loop on its own goroutine.
// Execute must not block until task returns.
type Executor interface {
	Execute(task func()) error
}

// ExecutorFunc adapts a function into an Executor.
type ExecutorFunc func(task func()) error

// Execute calls f.
func (f ExecutorFunc) Execute(task func()) error {
	return f(task)
}

// GoroutineExecutor starts a new goroutine per task.
type GoroutineExecutor struct{}

// Execute implements Executor.
func (GoroutineExecutor) Execute(task func()) error {
	go task()
	return nil
}

// AntsExecutor runs tasks on an ants worker pool.
// Processor loops hold their worker until halted, so size the pool for
// every processor that shares it.
type AntsExecutor struct {
	pool *ants.Pool
}

// NewAntsExecutor returns an executor backed by a non-blocking pool of
// size workers. Submitting more concurrent tasks than size fails with
// ants.ErrPoolOverload. Panics escaping a task are logged with logger.
func NewAntsExecutor(size int, logger logging.Logger) (*AntsExecutor, error) {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	pool, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithExpiryDuration(10*time.Second),
		ants.WithLogger(logging.Printf{Logger: logger}),
		ants.WithPanicHandler(func(v any) {
			logger.Errorf("executor task panicked: %v", v)
		}))
	if err != nil {
		return nil, err
	}
	return &AntsExecutor{pool: pool}, nil
}

// Execute implements Executor.
func (e *AntsExecutor) Execute(task func()) error {
	return e.pool.Submit(task)
}

// Running returns the number of busy workers.
func (e *AntsExecutor) Running() int {
	return e.pool.Running()
}

// Release closes the pool. Halt the disruptor first.
func (e *AntsExecutor) Release() {
	e.pool.Release()
}

// LockOSThread wraps exec so that every task runs locked to its OS thread,
// keeping a busy-spinning consumer on one thread.
func LockOSThread(exec Executor) Executor {
	return ExecutorFunc(func(task func()) error {
		return exec.Execute(func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			task()
		})
	})
}
