// Package workspace resolves the scratch directory for transient download
// artifacts.
package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
)

// subdir is the dedicated scratch subdirectory under the system temp root.
const subdir = "vidrelay"

const dirPerm = 0o755

// Workspace hands out the scratch directory and removes artifacts from it.
// The directory itself persists across runs; only per-download files are
// ever deleted.
type Workspace struct {
	log *slog.Logger
	dir string
}

// New resolves the scratch directory once. With an empty override it prefers
// a dedicated subdirectory under the system temp root, falling back to the
// bare temp root when that cannot be created.
func New(log *slog.Logger, override string) *Workspace {
	log = log.With(slog.String("package", "workspace"))

	dir := override
	if dir == "" {
		dir = filepath.Join(os.TempDir(), subdir)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		log.Error("create workspace, falling back to temp root",
			slog.String("dir", dir), slog.Any("error", err))

		dir = os.TempDir()
	}

	return &Workspace{log: log, dir: dir}
}

// Dir returns the resolved scratch directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Join resolves name inside the scratch directory.
func (w *Workspace) Join(name string) string {
	return filepath.Join(w.dir, name)
}

// Remove deletes the given files best-effort. Missing files are fine;
// other failures are logged and do not propagate, since by the time
// cleanup runs the response is already on the wire.
func (w *Workspace) Remove(paths ...string) {
	for _, path := range paths {
		err := os.Remove(path)
		if err == nil {
			w.log.Debug("removed artifact", slog.String("path", path))

			continue
		}

		if os.IsNotExist(err) {
			continue
		}

		w.log.Error("remove artifact", slog.String("path", path), slog.Any("error", err))
	}
}
