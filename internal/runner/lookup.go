package runner

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"vidrelay/internal/errs"
)

// toolName is the external media tool binary name.
const toolName = "yt-dlp"

// binaryName returns the platform-specific tool binary name.
func binaryName() string {
	if runtime.GOOS == "windows" {
		return toolName + ".exe"
	}

	return toolName
}

// BinaryPath resolves the tool executable with an ordered lookup: the
// configured explicit path, then the managed bins directory, then the
// system PATH.
func (r *Runner) BinaryPath() (string, error) {
	if r.cfg.Tool.Path != "" {
		if _, err := os.Stat(r.cfg.Tool.Path); err == nil {
			return r.cfg.Tool.Path, nil
		}
	}

	managed := filepath.Join(r.cfg.Tool.BinsDir, binaryName())
	if _, err := os.Stat(managed); err == nil {
		return managed, nil
	}

	path, err := exec.LookPath(toolName)
	if err != nil {
		return "", fmt.Errorf("%s not in configured path, bins dir or system PATH: %w", toolName, errs.ErrBinaryNotFound)
	}

	return path, nil
}
