// Package doctor runs readiness diagnostics for config, control directory, server, and state db.
package doctor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/rbright/cadence/internal/config"
	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/protocol"
	"github.com/rbright/cadence/internal/state"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes the checks for a loaded config. It never starts a server
// and never creates the control directory.
func Run(cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	dirCheck := checkControlDir(cfg.Config.ControlDir)
	checks = append(checks, dirCheck)
	if dirCheck.Pass {
		checks = append(checks, checkServer(ipc.SocketPath(cfg.Config.ControlDir)))
	}

	checks = append(checks, checkStateDB(cfg.Config.StateDB))
	checks = append(checks, checkExecutable())

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkControlDir applies the client's ownership and permission rules to
// an existing directory. A missing one is created on first run.
func checkControlDir(dir string) Check {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return Check{Name: "control_dir", Pass: true, Message: fmt.Sprintf("%s will be created on first run", dir)}
	}
	if err := ipc.EnsureControlDir(dir); err != nil {
		return Check{Name: "control_dir", Pass: false, Message: err.Error()}
	}
	return Check{Name: "control_dir", Pass: true, Message: dir}
}

// checkServer connects, pings and disconnects. A server that is not
// running is reported but does not fail the report.
func checkServer(endpoint string) Check {
	session, err := ipc.Connect(endpoint)
	if err != nil {
		return Check{Name: "server", Pass: true, Message: "not running"}
	}
	defer session.Close()

	if !ipc.Ping(session) {
		return Check{Name: "server", Pass: false, Message: fmt.Sprintf("no PONG from %s (busy or not a cadence server)", endpoint)}
	}
	_ = session.Send(protocol.CommandDisconnect)
	return Check{Name: "server", Pass: true, Message: fmt.Sprintf("running at %s", endpoint)}
}

func checkStateDB(configured string) Check {
	path, err := state.ResolvePath(configured)
	if err != nil {
		return Check{Name: "state_db", Pass: false, Message: err.Error()}
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Check{Name: "state_db", Pass: true, Message: fmt.Sprintf("%s not created yet", path)}
	}

	m, err := state.OpenReadOnly(path)
	if err != nil {
		return Check{Name: "state_db", Pass: false, Message: err.Error()}
	}
	defer m.Close()

	snap, err := m.Load()
	if err != nil {
		return Check{Name: "state_db", Pass: false, Message: fmt.Sprintf("read %s: %v", path, err)}
	}
	tracks := 0
	if snap != nil {
		tracks = len(snap.Playlist)
	}
	return Check{Name: "state_db", Pass: true, Message: fmt.Sprintf("%s (%d saved tracks)", path, tracks)}
}

// checkExecutable verifies the binary can re-execute itself as a server.
func checkExecutable() Check {
	path, err := os.Executable()
	if err != nil {
		return Check{Name: "executable", Pass: false, Message: err.Error()}
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return Check{Name: "executable", Pass: false, Message: fmt.Sprintf("%s is not executable: %v", path, err)}
	}
	return Check{Name: "executable", Pass: true, Message: path}
}
