package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// SocketName is the endpoint file created inside the control directory.
const SocketName = "socket2"

var (
	ErrAlreadyRunning     = errors.New("server is already running")
	ErrInsecureControlDir = errors.New("insecure control directory")
)

// SocketPath derives the control endpoint for dir.
func SocketPath(controlDir string) string {
	return filepath.Join(controlDir, SocketName)
}

// EnsureControlDir creates dir (0700) when absent and otherwise requires a
// directory owned by the current user, writable by it, and not writable by
// group or others.
func EnsureControlDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dir, 0o700); err != nil {
			return fmt.Errorf("create control directory %s: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("check control directory %s: %w", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInsecureControlDir, dir)
	}
	if info.Mode().Perm()&0o022 != 0 {
		return fmt.Errorf("%w: %s is writable by group or others", ErrInsecureControlDir, dir)
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok && int(st.Uid) != os.Getuid() {
		return fmt.Errorf("%w: %s is not owned by the current user", ErrInsecureControlDir, dir)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("%w: %s is not a writable directory", ErrInsecureControlDir, dir)
	}
	return nil
}

// Listen binds the control endpoint. A leftover socket file with no live
// owner is removed once; a live owner yields ErrAlreadyRunning.
func Listen(path string) (net.Listener, error) {
	listener, err := listenUnix(path)
	if err == nil {
		return listener, nil
	}
	if !isAddrInUse(err) {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}

	if conn, dialErr := net.Dial("unix", path); dialErr == nil {
		_ = conn.Close()
		return nil, ErrAlreadyRunning
	}

	if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
	}

	listener, err = listenUnix(path)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}
	return listener, nil
}

func listenUnix(path string) (net.Listener, error) {
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0o600)
	return listener, nil
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
