// Package launcher finds the running server or starts one and waits for it
// to signal that its listener is ready.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/protocol"
)

var (
	ErrServerExited  = errors.New("server exited")
	ErrCannotConnect = errors.New("can't connect to the server")
)

// Spawner starts a detached server process. The server writes one int32 to
// ready once its listener accepts connections.
type Spawner interface {
	Spawn(ready *os.File) error
}

// SpawnerFunc adapts a function to the Spawner interface.
type SpawnerFunc func(ready *os.File) error

func (f SpawnerFunc) Spawn(ready *os.File) error {
	return f(ready)
}

// Launcher owns the probe, spawn and rendezvous for one endpoint.
type Launcher struct {
	Endpoint string
	Spawner  Spawner
	Stdout   io.Writer
	Logger   *slog.Logger

	newPipe func() (*os.File, *os.File, error)
}

// Ensure returns a Session to the server at Endpoint. When nothing is
// listening and allowLaunch is set, a server is spawned first; launched
// reports whether that happened. Nothing is retried.
func (l *Launcher) Ensure(allowLaunch bool) (*ipc.Session, bool, error) {
	logger := l.logger()

	session, err := ipc.Connect(l.Endpoint)
	if err == nil {
		logger.Debug("server already running", "endpoint", l.Endpoint)
		return session, false, nil
	}
	if !allowLaunch {
		return nil, false, err
	}
	logger.Debug("probe failed", "endpoint", l.Endpoint, "error", err.Error())

	if l.Stdout != nil {
		fmt.Fprintln(l.Stdout, "Running the server...")
	}

	if err := l.spawnAndWait(); err != nil {
		return nil, false, err
	}

	session, err = ipc.Connect(l.Endpoint)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	logger.Info("server launched", "endpoint", l.Endpoint)
	return session, true, nil
}

func (l *Launcher) spawnAndWait() error {
	newPipe := l.newPipe
	if newPipe == nil {
		newPipe = os.Pipe
	}

	r, w, err := newPipe()
	if err != nil {
		return fmt.Errorf("create readiness pipe: %w", err)
	}
	defer r.Close()

	spawnErr := l.Spawner.Spawn(w)
	// The parent never writes; only the child's copy may keep the pipe open.
	_ = w.Close()
	if spawnErr != nil {
		return fmt.Errorf("spawn server: %w", spawnErr)
	}

	if _, err := protocol.ReadInt(r); err != nil {
		return fmt.Errorf("%w: %v", ErrServerExited, err)
	}
	return nil
}

func (l *Launcher) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
