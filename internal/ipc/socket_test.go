package ipc

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSocketPathIsInsideControlDir(t *testing.T) {
	require.Equal(t, filepath.Join("/home/u/.cadence", "socket2"), SocketPath("/home/u/.cadence"))
}

func TestEnsureControlDirCreatesPrivateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".cadence")

	require.NoError(t, EnsureControlDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Zero(t, info.Mode().Perm()&0o077)
}

func TestEnsureControlDirAcceptsExistingPrivateDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".cadence")
	require.NoError(t, os.Mkdir(dir, 0o700))

	require.NoError(t, EnsureControlDir(dir))
}

func TestEnsureControlDirRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cadence")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	err := EnsureControlDir(path)
	require.ErrorIs(t, err, ErrInsecureControlDir)
	require.Contains(t, err.Error(), "not a directory")
}

func TestEnsureControlDirRejectsGroupWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".cadence")
	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.Chmod(dir, 0o770))

	err := EnsureControlDir(dir)
	require.ErrorIs(t, err, ErrInsecureControlDir)
	require.Contains(t, err.Error(), "group or others")
}

func TestEnsureControlDirMissingParent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing", ".cadence")

	err := EnsureControlDir(dir)
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrInsecureControlDir))
	require.Contains(t, err.Error(), "create control directory")
}

func TestListenRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), SocketName)

	stale, err := net.Listen("unix", path)
	require.NoError(t, err)
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, stale.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "stale socket file should remain for this test")

	listener, err := Listen(path)
	require.NoError(t, err)
	require.NoError(t, listener.Close())
}

func TestListenReturnsAlreadyRunningWhenOwnerIsLive(t *testing.T) {
	path := filepath.Join(t.TempDir(), SocketName)

	owner, err := net.Listen("unix", path)
	require.NoError(t, err)
	defer owner.Close()

	go func() {
		conn, acceptErr := owner.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, err = Listen(path)
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestListenSetsOwnerOnlyMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), SocketName)

	listener, err := Listen(path)
	require.NoError(t, err)
	defer listener.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
