package cli

// This file contains the list command for displaying previous run
// records.

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/soaker/soaker/history"
	"github.com/urfave/cli/v2"
)

func (a *App) list(ctx *cli.Context) error {
	filterTag := ctx.String("tag")
	limit := ctx.Int("limit")

	s, err := a.loadSettings(ctx)
	if err != nil {
		return err
	}

	entries, err := history.LoadEntries(a.logger, s.Results)
	if err != nil {
		return fmt.Errorf("failed to load run records: %w", err)
	}

	var filtered []history.Entry
	for _, entry := range entries {
		if filterTag == "" || entry.Record.Tag == filterTag {
			filtered = append(filtered, entry)
		}
	}

	if len(filtered) == 0 {
		if filterTag != "" {
			fmt.Printf("No run records found with tag: %s\n", filterTag)
		} else {
			fmt.Println("No run records found")
			fmt.Printf("Run records are saved to %s/<timestamp>[-<tag>]/\n", s.Results)
		}
		return nil
	}

	// Sort by timestamp (newest first)
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Record.Timestamp.After(filtered[j].Record.Timestamp)
	})

	display := filtered
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "WHEN", "DURATION", "EXIT", "TAG", "TEST", "COMMIT"})

	for _, entry := range display {
		rec := entry.Record

		status := "✓"
		if rec.Failed() {
			status = "✗"
		}

		shortCommit := rec.GitCommit
		if len(shortCommit) > 8 {
			shortCommit = shortCommit[:8]
		}

		t.AppendRow(table.Row{
			status,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%ds", rec.Duration),
			rec.ExitStatus,
			rec.Tag,
			rec.TestName,
			shortCommit,
		})
	}
	t.Render()

	fmt.Printf("\n%d of %d records shown\n", len(display), len(filtered))
	fmt.Println("View test output: cat <results>/<record>/stdout.log")

	return nil
}
