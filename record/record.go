// Package record manages run record directories: the durable artifact
// of one test invocation, plus the per-tag "current" and "latest"
// pointer aliases under the results root.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// File names inside a run record directory.
const (
	StdoutLog        = "stdout.log"
	StderrLog        = "stderr.log"
	DurationFile     = "duration"
	ExitStatusFile   = "exit-status"
	GitCommitFile    = "git-commit"
	TestNameFile     = "test-name"
	ExtraColumnsFile = "extra-columns"
	ScreenshotFile   = "screenshot-clean.png"
	VideoFile        = "video.webm"
)

// Pointer alias names. Both are suffixed with the tag when one is set.
const (
	AliasCurrent = "current"
	AliasLatest  = "latest"
)

// NameLayout names record directories at second granularity.
const NameLayout = "20060102-150405"

// NewName returns the record directory name for a run started at the
// given time: the timestamp plus an optional tag suffix.
func NewName(at time.Time, tag string) string {
	name := at.Format(NameLayout)
	if tag != "" {
		name += "-" + tag
	}
	return name
}

// Record is one run record directory under the results root.
type Record struct {
	Root string
	Name string
	Tag  string
}

// Create makes a fresh record directory for a run started at the given
// time and points the per-tag "current" alias at it.
func Create(root string, at time.Time, tag string) (*Record, error) {
	r := &Record{Root: root, Name: NewName(at, tag), Tag: tag}
	if err := os.MkdirAll(r.Dir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run record directory: %w", err)
	}
	if err := r.Point(AliasCurrent); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the record directory path.
func (r *Record) Dir() string {
	return filepath.Join(r.Root, r.Name)
}

// Path returns the path of a file inside the record directory.
func (r *Record) Path(file string) string {
	return filepath.Join(r.Dir(), file)
}

// Point updates a pointer alias to reference this record, removing any
// previous link first. Aliases are per-tag so runs with different tags
// do not clobber each other's pointers. Last writer wins; invocations
// are strictly sequential so this needs no locking.
func (r *Record) Point(alias string) error {
	if r.Tag != "" {
		alias += "-" + r.Tag
	}
	link := filepath.Join(r.Root, alias)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s pointer: %w", alias, err)
	}
	if err := os.Symlink(r.Name, link); err != nil {
		return fmt.Errorf("failed to update %s pointer: %w", alias, err)
	}
	return nil
}

// CreateLog opens a fresh log file inside the record directory. The
// caller owns the handle.
func (r *Record) CreateLog(name string) (*os.File, error) {
	f, err := os.Create(r.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return f, nil
}

// WriteDuration persists the elapsed wall-clock seconds.
func (r *Record) WriteDuration(seconds int) error {
	return r.writeFile(DurationFile, strconv.Itoa(seconds))
}

// WriteExitStatus persists the child's final exit status.
func (r *Record) WriteExitStatus(status int) error {
	return r.writeFile(ExitStatusFile, strconv.Itoa(status))
}

// WriteGitCommit persists the revision descriptor of the test's repo.
func (r *Record) WriteGitCommit(revision string) error {
	return r.writeFile(GitCommitFile, revision)
}

// WriteTestName persists the repo-relative path of the test program.
func (r *Record) WriteTestName(name string) error {
	return r.writeFile(TestNameFile, name)
}

// WriteExtraColumns persists the tag row. Without a tag the file is
// not written at all.
func (r *Record) WriteExtraColumns() error {
	if r.Tag == "" {
		return nil
	}
	return r.writeFile(ExtraColumnsFile, "Tag\t"+r.Tag)
}

func (r *Record) writeFile(name, content string) error {
	if err := os.WriteFile(r.Path(name), []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
