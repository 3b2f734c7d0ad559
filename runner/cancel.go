package runner

// This file contains the two-stage interrupt handling: the first
// operator interrupt stops the loop after the current test, the second
// kills the running process group immediately.

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

type cancelState int

const (
	stateRunning cancelState = iota
	stateInterruptRequested
	stateKillRequested
)

// Canceller tracks operator interrupts and escalates from "let the
// current test finish" to "kill the process tree now". It is shared
// between the signal-watching goroutine and the orchestrator's wait
// loop and must be passed by reference.
type Canceller struct {
	logger zerolog.Logger

	mu     sync.Mutex
	state  cancelState
	stop   bool
	target *Proc

	preempt chan struct{}
}

// NewCanceller returns a canceller in the initial running state.
func NewCanceller(logger zerolog.Logger) *Canceller {
	return &Canceller{
		logger:  logger,
		preempt: make(chan struct{}, 1),
	}
}

// Watch consumes operator signals until sigs is closed. It is meant to
// run in its own goroutine with a channel registered via signal.Notify.
func (c *Canceller) Watch(sigs <-chan os.Signal) {
	for range sigs {
		c.Signal()
	}
}

// Signal records one operator interrupt and applies its effect.
func (c *Canceller) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateRunning:
		c.state = stateInterruptRequested
		c.stop = true
		c.logger.Warn().Msg("Interrupt received; letting the current test finish (interrupt again to exit now)")
		// Queue one preemption notice for the in-flight wait.
		select {
		case c.preempt <- struct{}{}:
		default:
		}
	case stateInterruptRequested:
		c.state = stateKillRequested
		c.logger.Warn().Msg("Second interrupt received; killing the test process tree and exiting")
		if c.target != nil {
			if err := c.target.KillGroup(); err != nil {
				c.logger.Debug().Err(err).Msg("Failed to kill process group")
			}
		}
	case stateKillRequested:
		// Nothing left to escalate to.
	}
}

// SetTarget points the kill escalation at the currently running
// process. Pass nil between invocations.
func (c *Canceller) SetTarget(p *Proc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = p
	// A kill requested between invocations applies to the next launch.
	if c.state == stateKillRequested && p != nil {
		if err := p.KillGroup(); err != nil {
			c.logger.Debug().Err(err).Msg("Failed to kill process group")
		}
	}
}

// Preempt returns the channel the wait loop selects on. One notice is
// queued when the first interrupt fires; each wait consumes at most one.
func (c *Canceller) Preempt() <-chan struct{} {
	return c.preempt
}

// Stopped reports whether no further tests or iterations should start.
// Once set it never clears.
func (c *Canceller) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop
}

// Killed reports whether the second interrupt fired.
func (c *Canceller) Killed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateKillRequested
}
