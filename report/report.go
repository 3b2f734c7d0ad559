// Package report renders best-effort diagnostics for a completed run
// record: a plain-text summary table and, on failure, a screenshot.
// Nothing in this package ever aborts the supervisor loop.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/soaker/soaker/history"
)

const reportFile = "report.txt"

// Generate writes a summary table of the record's persisted fields to
// report.txt inside the record directory. The caller treats any error
// as a warning, never as fatal.
func Generate(dir string) error {
	rec, err := history.Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load run record: %w", err)
	}

	result := "OK"
	if rec.Failed() {
		result = "FAILED"
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Test", rec.TestName},
		{"Started", rec.Timestamp.Format(time.RFC3339)},
		{"Duration", fmt.Sprintf("%ds", rec.Duration)},
		{"Exit status", rec.ExitStatus},
		{"Result", result},
	})
	if rec.GitCommit != "" {
		t.AppendRow(table.Row{"Commit", rec.GitCommit})
	}
	if rec.Tag != "" {
		t.AppendRow(table.Row{"Tag", rec.Tag})
	}

	path := filepath.Join(dir, reportFile)
	if err := os.WriteFile(path, []byte(t.Render()+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
