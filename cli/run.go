package cli

// This file contains the run orchestrator: the outer repeat loop, the
// per-test loop, and the wiring between the process supervisor, the
// log multiplexers, the cancellation state machine and the outcome
// classifier.

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/soaker/soaker/logmux"
	"github.com/soaker/soaker/model"
	"github.com/soaker/soaker/record"
	"github.com/soaker/soaker/report"
	"github.com/soaker/soaker/runner"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func (a *App) run(ctx *cli.Context) error {
	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}

	if ctx.Args().Len() < 1 {
		return fmt.Errorf("no test specified: provide at least one test program path")
	}
	var tests []string
	for _, arg := range ctx.Args().Slice() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to canonicalize %s: %w", arg, err)
		}
		tests = append(tests, abs)
	}

	policy := model.Policy{Leniency: s.Leniency, RunOnce: s.Once}

	cancel := runner.NewCanceller(a.logger)
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go cancel.Watch(sigs)

	a.logger.Debug().
		Int("leniency", policy.Leniency).
		Bool("once", policy.RunOnce).
		Strs("tests", tests).
		Msg("Starting test loop")

	return a.loop(tests, s, cancel)
}

// loop drives the outer iterations and the per-test inner loop until
// run-once completes, a classification stops it, or an interrupt
// lands. Invocations are strictly sequential.
func (a *App) loop(tests []string, s settings, cancel *runner.Canceller) error {
	for {
		for _, test := range tests {
			// A single interrupt stops the loop before the next test
			// starts, even when the last outcome said continue.
			if cancel.Stopped() {
				a.logger.Info().Msg("Stop requested; not starting further tests")
				return nil
			}
			outcome, err := a.runOne(test, s, cancel)
			if err != nil {
				return err
			}
			if outcome == runner.Stop {
				a.logger.Info().Msg("Stopping test loop")
				return nil
			}
		}
		if s.Once {
			return nil
		}
	}
}

// runOne drives a single invocation from record creation to
// classification. Errors returned here are fatal for the whole run.
func (a *App) runOne(test string, s settings, cancel *runner.Canceller) (runner.Outcome, error) {
	rec, err := record.Create(s.Results, time.Now(), s.Tag)
	if err != nil {
		return runner.Stop, err
	}

	revision, err := a.gitRevision(filepath.Dir(test))
	if err != nil {
		return runner.Stop, err
	}
	name, err := a.testName(test)
	if err != nil {
		return runner.Stop, err
	}
	if err := rec.WriteGitCommit(revision); err != nil {
		return runner.Stop, err
	}
	if err := rec.WriteTestName(name); err != nil {
		return runner.Stop, err
	}
	if err := rec.WriteExtraColumns(); err != nil {
		return runner.Stop, err
	}

	spec := runner.LaunchSpec{
		Path:       test,
		Verbosity:  s.Verbosity,
		DumpImages: s.DumpImages,
	}
	if s.Video {
		spec.VideoOutput = rec.Path(record.VideoFile)
	}

	stdoutLog, err := rec.CreateLog(record.StdoutLog)
	if err != nil {
		return runner.Stop, err
	}
	defer stdoutLog.Close()
	stderrLog, err := rec.CreateLog(record.StderrLog)
	if err != nil {
		return runner.Stop, err
	}
	defer stderrLog.Close()

	a.announce(name, rec, spec, s.Verbosity)

	proc, err := runner.Launch(spec)
	if err != nil {
		return runner.Stop, err
	}
	defer proc.Close()
	cancel.SetTarget(proc)
	defer cancel.SetTarget(nil)

	outMux := logmux.New(stdoutLog, logmux.Echo(os.Stdout, s.Verbosity, logmux.StdoutThreshold))
	errMux := logmux.New(stderrLog, logmux.Echo(os.Stderr, s.Verbosity, logmux.StderrThreshold))

	var drains errgroup.Group
	drains.Go(func() error { return outMux.Drain(proc.Stdout()) })
	drains.Go(func() error { return errMux.Drain(proc.Stderr()) })

	// A preempted wait means a signal arrived, not that the child
	// exited; keep waiting on the same handle until it really did.
	var status int
	for {
		st, preempted := proc.Wait(cancel.Preempt())
		if preempted {
			continue
		}
		status = st
		break
	}

	// Both streams must be fully drained before the record is
	// finalized, or the log tails are lost.
	if err := drains.Wait(); err != nil {
		a.logger.Warn().Err(err).Msg("Log capture ended with an error")
	}

	inv := model.Invocation{
		TestPath:   test,
		StartedAt:  proc.StartedAt(),
		Duration:   proc.DurationSeconds(),
		ExitStatus: status,
		Verbosity:  s.Verbosity,
		Video:      s.Video,
	}
	a.logger.Debug().
		Str("test", inv.TestPath).
		Int("duration_s", inv.Duration).
		Int("exit_status", inv.ExitStatus).
		Msg("Invocation complete")

	if err := rec.WriteDuration(inv.Duration); err != nil {
		return runner.Stop, err
	}
	if err := rec.WriteExitStatus(inv.ExitStatus); err != nil {
		return runner.Stop, err
	}

	if inv.ExitStatus != 0 {
		if err := report.CaptureScreenshot(rec.Path(record.ScreenshotFile)); err != nil {
			a.logger.Debug().Err(err).Msg("Screenshot capture failed")
		}
	}

	a.conclude(inv.ExitStatus, s.Verbosity)

	if err := report.Generate(rec.Dir()); err != nil {
		a.logger.Warn().Err(err).Msg("Report generation failed")
	}

	if err := rec.Point(record.AliasLatest); err != nil {
		return runner.Stop, err
	}

	return runner.Classify(inv.ExitStatus, s.Leniency, cancel.Stopped()), nil
}

// announce prints the test header: a single line with trailing status
// at verbosity 0, a multi-line block otherwise.
func (a *App) announce(name string, rec *record.Record, spec runner.LaunchSpec, verbosity int) {
	if verbosity == 0 {
		fmt.Printf("Running %s ... ", name)
		return
	}
	fmt.Printf("=== %s ===\n", name)
	fmt.Printf("record:  %s\n", rec.Dir())
	fmt.Printf("command: %s\n", shellescape.QuoteCommand(spec.CommandLine()))
}

func (a *App) conclude(status, verbosity int) {
	result := "OK"
	if status != 0 {
		result = "FAILED"
	}
	if verbosity == 0 {
		fmt.Println(result)
		return
	}
	fmt.Printf("%s (exit status %d)\n", result, status)
}
