// Package logging configures runtime JSONL logging output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Role names the process writing the log; each role gets its own file.
type Role string

const (
	RoleClient Role = "client"
	RoleServer Role = "server"
)

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a JSONL logger appending to <state>/cadence/<role>.jsonl.
func New(role Role, level slog.Leveler) (Runtime, error) {
	path, err := resolveLogPath(role)
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, err
	}

	return Runtime{Logger: newJSON(f, level), Path: path, closer: f}, nil
}

// NewWriter logs JSON lines to w, which the caller owns. A foreground
// server uses it with stdout.
func NewWriter(w io.Writer, level slog.Leveler) Runtime {
	return Runtime{Logger: newJSON(w, level)}
}

func newJSON(w io.Writer, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// resolveLogPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func resolveLogPath(role Role) (string, error) {
	name := string(role) + ".jsonl"
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "cadence", name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "cadence", name), nil
}
