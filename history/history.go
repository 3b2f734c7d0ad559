package history

// This file contains shared utilities for loading run records back
// from the results root, used by the list command and the report
// generator.

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/soaker/soaker/model"
	"github.com/soaker/soaker/record"
)

// Entry pairs a loaded run record with its directory path.
type Entry struct {
	Record   model.RunRecord
	FullPath string
}

// LoadEntries loads every run record directory under the results root.
// The "current" and "latest" pointer aliases are symlinks and are
// skipped so records are not listed twice.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	dirents, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results root: %w", err)
	}

	var entries []Entry
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		dir := filepath.Join(root, d.Name())
		rec, err := Load(dir)
		if err != nil {
			logger.Warn().Err(err).Str("path", dir).Msg("Failed to parse run record")
			continue
		}
		entries = append(entries, Entry{Record: rec, FullPath: dir})
	}

	return entries, nil
}

// Load reads one run record directory back into a RunRecord. Only the
// directory name is mandatory; missing files leave their fields zero,
// so a record cut short by a forced exit still loads.
func Load(dir string) (model.RunRecord, error) {
	name := filepath.Base(dir)
	ts, tag, err := ParseName(name)
	if err != nil {
		return model.RunRecord{}, err
	}

	rec := model.RunRecord{
		Name:      name,
		Dir:       dir,
		Timestamp: ts,
		Tag:       tag,
	}

	if v, err := readIntFile(filepath.Join(dir, record.DurationFile)); err == nil {
		rec.Duration = v
	}
	if v, err := readIntFile(filepath.Join(dir, record.ExitStatusFile)); err == nil {
		rec.ExitStatus = v
	}
	if v, err := readStringFile(filepath.Join(dir, record.GitCommitFile)); err == nil {
		rec.GitCommit = v
	}
	if v, err := readStringFile(filepath.Join(dir, record.TestNameFile)); err == nil {
		rec.TestName = v
	}

	return rec, nil
}

// ParseName splits a record directory name into its timestamp and
// optional tag suffix.
func ParseName(name string) (time.Time, string, error) {
	stamp := name
	tag := ""
	if len(name) > len(record.NameLayout) {
		if name[len(record.NameLayout)] != '-' {
			return time.Time{}, "", fmt.Errorf("malformed record name %q", name)
		}
		stamp = name[:len(record.NameLayout)]
		tag = name[len(record.NameLayout)+1:]
	}
	ts, err := time.ParseInLocation(record.NameLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed record name %q: %w", name, err)
	}
	return ts, tag, nil
}

func readStringFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readIntFile(path string) (int, error) {
	s, err := readStringFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return v, nil
}
