package disruptor

import (
	"runtime"
	"sync"
	"time"

	"github.com/ringwire/disruptor/internal/barrier"
)

// Dependency is a read-only sequence a consumer waits on.
// *Sequence implements it.
type Dependency = barrier.Barrier

// Alerter reports whether a waiter should give up.
type Alerter interface {
	// CheckAlert returns ErrAlerted once the waiter has been alerted.
	CheckAlert() error
}

// WaitStrategy decides how a consumer waits for work.
type WaitStrategy interface {
	// WaitFor waits until dependent reaches seq and returns the value seen,
	// which may be greater than seq.
	// cursor is the producer cursor; blocking strategies sleep on it.
	WaitFor(seq int64, cursor *Sequence, dependent Dependency, alert Alerter) (int64, error)

	// SignalAllWhenBlocking wakes every blocked waiter.
	// Producers call it after each publish.
	SignalAllWhenBlocking()
}

// BusySpinWaitStrategy polls its dependencies in a tight loop.
// Lowest latency; consumes a full core per consumer.
type BusySpinWaitStrategy struct{}

// WaitFor implements WaitStrategy.
func (BusySpinWaitStrategy) WaitFor(seq int64, _ *Sequence, dependent Dependency, alert Alerter) (int64, error) {
	available := dependent.Load()
	for available < seq {
		if err := alert.CheckAlert(); err != nil {
			return available, err
		}
		available = dependent.Load()
	}
	return available, nil
}

// SignalAllWhenBlocking implements WaitStrategy.
func (BusySpinWaitStrategy) SignalAllWhenBlocking() {}

const defaultSpinTries = 100

// YieldingWaitStrategy spins for a while, then yields the processor
// between polls.
type YieldingWaitStrategy struct {
	// SpinTries is the number of polls before yielding.
	// Zero means 100.
	SpinTries int
}

// WaitFor implements WaitStrategy.
func (s YieldingWaitStrategy) WaitFor(seq int64, _ *Sequence, dependent Dependency, alert Alerter) (int64, error) {
	counter := s.SpinTries
	if counter <= 0 {
		counter = defaultSpinTries
	}
	available := dependent.Load()
	for available < seq {
		if err := alert.CheckAlert(); err != nil {
			return available, err
		}
		if counter == 0 {
			runtime.Gosched()
		} else {
			counter--
		}
		available = dependent.Load()
	}
	return available, nil
}

// SignalAllWhenBlocking implements WaitStrategy.
func (YieldingWaitStrategy) SignalAllWhenBlocking() {}

// SleepingWaitStrategy spins, then yields, then sleeps between polls.
// It trades wake-up latency for an almost idle CPU.
type SleepingWaitStrategy struct {
	// Retries is the number of spin and yield attempts before sleeping.
	// Zero means 200.
	Retries int
	// Sleep is the pause between polls once retries are exhausted.
	// Zero means 50µs.
	Sleep time.Duration
}

// WaitFor implements WaitStrategy.
func (s SleepingWaitStrategy) WaitFor(seq int64, _ *Sequence, dependent Dependency, alert Alerter) (int64, error) {
	counter := s.Retries
	if counter <= 0 {
		counter = 200
	}
	sleep := s.Sleep
	if sleep <= 0 {
		sleep = 50 * time.Microsecond
	}
	available := dependent.Load()
	for available < seq {
		if err := alert.CheckAlert(); err != nil {
			return available, err
		}
		switch {
		case counter > 100:
			counter--
		case counter > 0:
			counter--
			runtime.Gosched()
		default:
			time.Sleep(sleep)
		}
		available = dependent.Load()
	}
	return available, nil
}

// SignalAllWhenBlocking implements WaitStrategy.
func (SleepingWaitStrategy) SignalAllWhenBlocking() {}

// BlockingWaitStrategy parks consumers on a condition variable until
// a producer publishes. Lowest CPU usage, highest wake-up latency.
//
// Use NewBlockingWaitStrategy; the zero value is not usable.
type BlockingWaitStrategy struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewBlockingWaitStrategy returns a ready BlockingWaitStrategy.
func NewBlockingWaitStrategy() *BlockingWaitStrategy {
	s := &BlockingWaitStrategy{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// WaitFor implements WaitStrategy.
func (s *BlockingWaitStrategy) WaitFor(seq int64, cursor *Sequence, dependent Dependency, alert Alerter) (int64, error) {
	if cursor.Get() < seq {
		s.mu.Lock()
		for cursor.Get() < seq {
			if err := alert.CheckAlert(); err != nil {
				s.mu.Unlock()
				return cursor.Get(), err
			}
			s.cond.Wait()
		}
		s.mu.Unlock()
	}
	return spinOnDependent(seq, dependent, alert)
}

// SignalAllWhenBlocking implements WaitStrategy.
func (s *BlockingWaitStrategy) SignalAllWhenBlocking() {
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}

// TimeoutBlockingWaitStrategy blocks like BlockingWaitStrategy but gives up
// with ErrTimeout after Timeout. Processors forward the timeout to handlers
// implementing TimeoutHandler.
//
// Use NewTimeoutBlockingWaitStrategy; the zero value is not usable.
type TimeoutBlockingWaitStrategy struct {
	timeout time.Duration

	mu      sync.Mutex
	waiters int
	signal  chan struct{}
}

// NewTimeoutBlockingWaitStrategy returns a strategy that waits at most timeout.
func NewTimeoutBlockingWaitStrategy(timeout time.Duration) *TimeoutBlockingWaitStrategy {
	return &TimeoutBlockingWaitStrategy{
		timeout: timeout,
		signal:  make(chan struct{}),
	}
}

// WaitFor implements WaitStrategy.
func (s *TimeoutBlockingWaitStrategy) WaitFor(seq int64, cursor *Sequence, dependent Dependency, alert Alerter) (int64, error) {
	if cursor.Get() < seq {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		for {
			s.mu.Lock()
			if cursor.Get() >= seq {
				s.mu.Unlock()
				break
			}
			signal := s.signal
			s.waiters++
			s.mu.Unlock()

			var err error
			if err = alert.CheckAlert(); err == nil {
				select {
				case <-signal:
				case <-timer.C:
					err = ErrTimeout
				}
			}

			s.mu.Lock()
			s.waiters--
			s.mu.Unlock()
			if err != nil {
				return cursor.Get(), err
			}
		}
	}
	return spinOnDependent(seq, dependent, alert)
}

// SignalAllWhenBlocking implements WaitStrategy.
func (s *TimeoutBlockingWaitStrategy) SignalAllWhenBlocking() {
	s.mu.Lock()
	if s.waiters > 0 {
		close(s.signal)
		s.signal = make(chan struct{})
	}
	s.mu.Unlock()
}

// spinOnDependent waits for upstream consumers once the cursor is known
// to be far enough. Upstream consumers are expected to be close behind.
func spinOnDependent(seq int64, dependent Dependency, alert Alerter) (int64, error) {
	available := dependent.Load()
	for available < seq {
		if err := alert.CheckAlert(); err != nil {
			return available, err
		}
		runtime.Gosched()
		available = dependent.Load()
	}
	return available, nil
}
