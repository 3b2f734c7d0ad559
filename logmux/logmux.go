// Package logmux stamps and tees the output streams of a test process.
//
// Each stream gets its own Mux: lines are prefixed with a capture
// timestamp, appended to the run record's log file and, when the
// stream's verbosity threshold is met, mirrored live to the operator.
package logmux

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

// stampLayout gives second and sub-second precision.
const stampLayout = "15:04:05.000"

// Verbosity thresholds per stream: stdout is mirrored from level 1,
// stderr only from level 2.
const (
	StdoutThreshold = 1
	StderrThreshold = 2
)

// Mux copies one output stream into a log file, prefixing every line
// with a capture timestamp, and mirrors the stamped lines to an
// operator sink when one is configured.
type Mux struct {
	file io.Writer
	echo io.Writer // nil below the verbosity threshold
	now  func() time.Time
}

// New returns a Mux writing stamped lines to file and, when echo is
// non-nil, mirroring them to echo.
func New(file, echo io.Writer) *Mux {
	return &Mux{file: file, echo: echo, now: time.Now}
}

// Echo returns w when the verbosity level meets the stream's threshold
// and nil otherwise, so the mirror becomes a no-op.
func Echo(w io.Writer, verbosity, threshold int) io.Writer {
	if verbosity >= threshold {
		return w
	}
	return nil
}

// Drain reads r until end of stream, stamping and writing each line.
// It must be allowed to finish before the invocation is finalized, or
// the tail of the log is lost.
func (m *Mux) Drain(r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := fmt.Sprintf("%s %s\n", m.now().Format(stampLayout), sc.Text())
		if _, err := io.WriteString(m.file, line); err != nil {
			return fmt.Errorf("failed to write log line: %w", err)
		}
		if m.echo != nil {
			// Mirroring is best effort; a broken operator pipe must
			// not truncate the persistent log.
			_, _ = io.WriteString(m.echo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}
