// Package lifecycle tracks the run state of an event processor.
package lifecycle

import (
	"sync"
	"sync/atomic"
)

// State of a processor.
type State int32

const (
	// Idle is the zero state: constructed, never run.
	Idle State = iota
	// Running means the processor loop owns its goroutine.
	Running
	// HaltRequested means the loop will exit after its current batch.
	HaltRequested
	// Stopped means the loop has returned. A stopped processor may run again.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case HaltRequested:
		return "halt-requested"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StartResult is the outcome of Machine.Start.
type StartResult int

const (
	// Started means the caller now owns the loop.
	Started StartResult = iota
	// AlreadyRunning means another goroutine owns the loop.
	AlreadyRunning
	// HaltedBeforeStart means a halt arrived before the loop ever ran.
	// The machine is Stopped and the caller must return immediately.
	HaltedBeforeStart
)

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Machine holds the state of one processor.
// Transitions take a mutex; the hot path only does atomic loads.
// Its zero value is Idle.
type Machine struct {
	state  atomic.Int32
	_      [60]byte
	mu     sync.Mutex
	active bool
	done   chan struct{}
}

// Load returns the current state.
func (m *Machine) Load() State {
	return State(m.state.Load())
}

// IsHaltRequested reports whether a halt is pending.
func (m *Machine) IsHaltRequested() bool {
	return m.Load() == HaltRequested
}

// Start claims the loop for the calling goroutine.
func (m *Machine) Start() StartResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.Load() {
	case Idle, Stopped:
		m.active = true
		m.state.Store(int32(Running))
		return Started
	case HaltRequested:
		if !m.active {
			m.stopLocked()
			return HaltedBeforeStart
		}
	}
	return AlreadyRunning
}

// RequestHalt asks a running (or not yet running) loop to stop.
// It returns false if the machine is already stopped or halting.
func (m *Machine) RequestHalt() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.Load() {
	case Idle, Running:
		m.state.Store(int32(HaltRequested))
		return true
	}
	return false
}

// Stop marks the loop as returned and wakes Done waiters.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Machine) stopLocked() {
	m.active = false
	m.state.Store(int32(Stopped))
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
}

// Done returns a channel that is closed once the machine is Stopped.
func (m *Machine) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Load() == Stopped {
		return closed
	}
	if m.done == nil {
		m.done = make(chan struct{})
	}
	return m.done
}
