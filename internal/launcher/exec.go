package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// ReadyFD is the descriptor number the child finds the readiness pipe on.
const ReadyFD = 3

// ExecSpawner re-executes a binary in server mode, detached into its own
// session with stdio on /dev/null.
type ExecSpawner struct {
	// Path defaults to the running executable.
	Path string
	// Args are appended after the server-mode flags.
	Args []string
}

// Command builds the child command without starting it.
func (s ExecSpawner) Command(ready *os.File) (*exec.Cmd, error) {
	path := s.Path
	if path == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		path = self
	}

	args := append([]string{"--server", fmt.Sprintf("--ready-fd=%d", ReadyFD)}, s.Args...)
	cmd := exec.Command(path, args...)
	cmd.ExtraFiles = []*os.File{ready}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd, nil
}

func (s ExecSpawner) Spawn(ready *os.File) error {
	cmd, err := s.Command(ready)
	if err != nil {
		return err
	}

	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devnull.Close()
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	// The child is reclaimed by a reaper, never waited on here.
	return cmd.Process.Release()
}
