package runner

// This file contains the process supervisor that launches a test
// program in its own process group and tracks its exit status.

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// LaunchSpec describes how one test process is started.
type LaunchSpec struct {
	// Absolute path to the test program
	Path string
	// Verbosity level, forwarded to the test program as repeated -v flags
	Verbosity int
	// When non-empty, passed as --video-output so the test records a video
	VideoOutput string
	// When set, passed as --dump-images
	DumpImages bool
}

// Args returns the argument vector the test program is invoked with.
func (s LaunchSpec) Args() []string {
	var args []string
	for i := 0; i < s.Verbosity; i++ {
		args = append(args, "-v")
	}
	if s.VideoOutput != "" {
		args = append(args, "--video-output", s.VideoOutput)
	}
	if s.DumpImages {
		args = append(args, "--dump-images")
	}
	return args
}

// CommandLine returns the full argument vector including the program path.
func (s LaunchSpec) CommandLine() []string {
	return append([]string{s.Path}, s.Args()...)
}

// Proc is a handle on a launched test process. Its exit status is
// collected in the background, so waiting on an already-exited process
// returns the same status every time.
type Proc struct {
	cmd      *exec.Cmd
	started  time.Time
	finished time.Time

	stdout io.ReadCloser
	stderr io.ReadCloser

	done   chan struct{}
	status int
}

// Launch starts the test program in its own process group, wires fresh
// pipes for both output streams and records the start timestamp.
func Launch(spec LaunchSpec) (*Proc, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	cmd := exec.Command(spec.Path, spec.Args()...)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	// A fresh process group lets a later kill reach every descendant
	// the test program spawns, not just the immediate child.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	p := &Proc{
		cmd:    cmd,
		stdout: stdoutR,
		stderr: stderrR,
		done:   make(chan struct{}),
	}

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, fmt.Errorf("failed to start %s: %w", spec.Path, err)
	}
	p.started = time.Now()

	// The child holds its own copies of the write ends; closing ours
	// makes the readers see EOF once the whole subtree exits.
	stdoutW.Close()
	stderrW.Close()

	go func() {
		err := cmd.Wait()
		p.status = exitStatus(cmd.ProcessState, err)
		p.finished = time.Now()
		close(p.done)
	}()

	return p, nil
}

// Stdout returns the read end of the child's standard output stream.
func (p *Proc) Stdout() io.ReadCloser { return p.stdout }

// Stderr returns the read end of the child's standard error stream.
func (p *Proc) Stderr() io.ReadCloser { return p.stderr }

// StartedAt returns the timestamp taken when the child was started.
func (p *Proc) StartedAt() time.Time { return p.started }

// Pid returns the child's process id.
func (p *Proc) Pid() int { return p.cmd.Process.Pid }

// Wait blocks until the child exits or a preemption notice arrives on
// preempt. A preempted wait returns preempted=true and no status; the
// caller re-waits on the same handle until preempted is false. Waiting
// on an already-exited child returns its final status idempotently.
func (p *Proc) Wait(preempt <-chan struct{}) (status int, preempted bool) {
	select {
	case <-p.done:
		return p.status, false
	case <-preempt:
		return 0, true
	}
}

// Elapsed returns the wall-clock duration of the child, measured from
// launch to exit (or to now, while it is still running).
func (p *Proc) Elapsed() time.Duration {
	select {
	case <-p.done:
		return p.finished.Sub(p.started)
	default:
		return time.Since(p.started)
	}
}

// DurationSeconds returns the elapsed time in whole seconds.
func (p *Proc) DurationSeconds() int {
	return int(p.Elapsed() / time.Second)
}

// Close releases the read ends of the output pipes. Call it once both
// streams are drained, so the descriptors do not accumulate across
// invocations.
func (p *Proc) Close() error {
	err := p.stdout.Close()
	if errErr := p.stderr.Close(); err == nil {
		err = errErr
	}
	return err
}

// KillGroup sends SIGKILL to the process group rooted at the child,
// terminating every descendant. Killing an already-exited child is a
// no-op.
func (p *Proc) KillGroup() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process group %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

// exitStatus maps the wait result to a single integer: the exit code
// for a normal exit, 128+signal when the child was killed by a signal.
func exitStatus(state *os.ProcessState, err error) int {
	if state == nil {
		// Wait itself failed, not the child; there is no status.
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
