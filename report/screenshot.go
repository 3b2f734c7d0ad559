package report

// Screenshot capture on test failure, via ImageMagick's import. Best
// effort only: a missing display or missing tool is not an error the
// loop cares about.

import (
	"bytes"
	"fmt"
	"os/exec"
)

// CaptureScreenshot grabs the root window into path.
func CaptureScreenshot(path string) error {
	cmd := exec.Command("import", "-window", "root", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}
