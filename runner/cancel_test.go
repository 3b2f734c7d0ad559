package runner

import (
	"io"
	"syscall"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestCanceller() *Canceller {
	return NewCanceller(zerolog.New(io.Discard))
}

func TestCancellerInitialState(t *testing.T) {
	c := newTestCanceller()
	require.False(t, c.Stopped())
	require.False(t, c.Killed())

	select {
	case <-c.Preempt():
		t.Fatal("no preemption notice expected before any signal")
	default:
	}
}

func TestFirstSignalStopsLoopAndPreempts(t *testing.T) {
	c := newTestCanceller()
	c.Signal()

	require.True(t, c.Stopped())
	require.False(t, c.Killed())

	select {
	case <-c.Preempt():
	default:
		t.Fatal("expected a queued preemption notice after the first signal")
	}

	// Only one notice is queued per interrupt.
	select {
	case <-c.Preempt():
		t.Fatal("expected at most one preemption notice")
	default:
	}
}

func TestSecondSignalKillsTarget(t *testing.T) {
	c := newTestCanceller()

	p, err := Launch(LaunchSpec{Path: script(t, "sleep 30")})
	require.NoError(t, err)
	c.SetTarget(p)

	c.Signal()
	require.True(t, c.Stopped())
	require.False(t, c.Killed())

	c.Signal()
	require.True(t, c.Killed())

	status, preempted := p.Wait(nil)
	require.False(t, preempted)
	require.Equal(t, 128+int(syscall.SIGKILL), status)
}

func TestSecondSignalWithoutTarget(t *testing.T) {
	c := newTestCanceller()
	c.Signal()
	c.Signal()
	require.True(t, c.Killed())

	// A kill requested between invocations applies to the next target.
	p, err := Launch(LaunchSpec{Path: script(t, "sleep 30")})
	require.NoError(t, err)
	c.SetTarget(p)

	status, _ := p.Wait(nil)
	require.Equal(t, 128+int(syscall.SIGKILL), status)
}

func TestThirdSignalIsIgnored(t *testing.T) {
	c := newTestCanceller()
	c.Signal()
	c.Signal()
	c.Signal()
	require.True(t, c.Stopped())
	require.True(t, c.Killed())
}

func TestStopIsPersistent(t *testing.T) {
	c := newTestCanceller()
	c.Signal()

	// Consuming the preemption notice must not clear the stop flag.
	<-c.Preempt()
	require.True(t, c.Stopped())
	c.SetTarget(nil)
	require.True(t, c.Stopped())
}
