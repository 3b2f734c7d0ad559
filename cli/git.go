package cli

// This file contains Git integration utilities for retrieving
// repository metadata about the test under execution.

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

func (a *App) gitRevision(dir string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git revision of %s: %w", dir, err)
	}
	return strings.TrimSpace(string(output)), nil
}

func (a *App) gitRepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s is not in a git repository: %w", dir, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// testName returns the path of the test program relative to the root
// of the repository containing it.
func (a *App) testName(testPath string) (string, error) {
	root, err := a.gitRepoRoot(filepath.Dir(testPath))
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, testPath)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", testPath, err)
	}
	return rel, nil
}
