package daemon

import (
	"log/slog"
	"os"
	"path/filepath"
)

// stateFile mirrors the daemon state to a plain-text file for external
// status displays (e.g. a bar widget). It is a one-way side effect:
// write failures are logged and swallowed, never surfaced to the loop.
type stateFile struct {
	path string
}

// newStateFile returns a sink for path. An empty path disables the
// sink entirely.
func newStateFile(path string) *stateFile {
	return &stateFile{path: path}
}

func (s *stateFile) set(state string) {
	if s.path == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		slog.Warn("create state file directory", "error", err)
		return
	}
	if err := os.WriteFile(s.path, []byte(state), 0o644); err != nil {
		slog.Warn("write state file", "error", err)
	}
}

// cleanup removes the state file on shutdown.
func (s *stateFile) cleanup() {
	if s.path == "" {
		return
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("remove state file", "error", err)
	}
}
