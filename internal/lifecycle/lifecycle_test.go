package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Transitions(t *testing.T) {
	var m Machine
	require.Equal(t, Idle, m.Load())

	require.Equal(t, Started, m.Start())
	assert.Equal(t, Running, m.Load())
	assert.Equal(t, AlreadyRunning, m.Start())

	require.True(t, m.RequestHalt())
	assert.True(t, m.IsHaltRequested())
	assert.False(t, m.RequestHalt(), "second halt request")
	assert.Equal(t, AlreadyRunning, m.Start(), "halting loop still owns its goroutine")

	done := m.Done()
	m.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after Stop()")
	}
	assert.Equal(t, Stopped, m.Load())
	assert.False(t, m.RequestHalt(), "halt on stopped machine")

	// Restart after stop.
	require.Equal(t, Started, m.Start())
	assert.Equal(t, Running, m.Load())
}

func TestMachine_HaltBeforeStart(t *testing.T) {
	var m Machine
	done := m.Done()
	require.True(t, m.RequestHalt())
	assert.Equal(t, HaltedBeforeStart, m.Start())
	assert.Equal(t, Stopped, m.Load())
	select {
	case <-done:
	default:
		t.Fatal("Done() not closed after early exit")
	}
}

func TestMachine_DoneWhenStopped(t *testing.T) {
	var m Machine
	m.Start()
	m.Stop()
	select {
	case <-m.Done():
	default:
		t.Fatal("Done() on stopped machine must be closed")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Idle:          "idle",
		Running:       "running",
		HaltRequested: "halt-requested",
		Stopped:       "stopped",
		State(42):     "unknown",
	}
	for s, want := range tests {
		assert.Equal(t, want, s.String())
	}
}
