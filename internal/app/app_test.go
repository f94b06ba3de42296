package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/launcher"
	"github.com/rbright/cadence/internal/protocol"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"-V"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "cadence")
	require.Empty(t, stderr.String())
}

func TestExecuteUsageErrors(t *testing.T) {
	paths := setupRunnerEnv(t)

	for name, args := range map[string][]string{
		"unknown flag":       {"--definitely-not"},
		"server and action":  {"-S", "-s"},
		"bad override":       {"-C", paths.configPath, "-O", "nonsense"},
		"interface and stop": {"-I", "-s"},
	} {
		t.Run(name, func(t *testing.T) {
			var stdout bytes.Buffer
			var stderr bytes.Buffer
			runner := Runner{Stdout: &stdout, Stderr: &stderr, Spawner: failSpawner(t)}

			exitCode := runner.Execute(context.Background(), args)
			require.Equal(t, 2, exitCode)
			require.Contains(t, stderr.String(), "error:")
			require.Contains(t, stderr.String(), "Usage:")
		})
	}
}

// Scenario A: nothing is running, -I with playlist actions launches a
// server, appends and plays on the same Session, then opens the interface.
func TestRunnerInteractiveLaunchesAndDispatches(t *testing.T) {
	paths := setupRunnerEnv(t)
	song := writeFile(t, "song.mp3")
	endpoint := ipc.SocketPath(paths.controlDir)

	var rec *recorder
	spawns := 0
	spawner := launcher.SpawnerFunc(func(ready *os.File) error {
		spawns++
		rec = startRecorder(t, endpoint)
		return protocol.WriteInt(ready, 1)
	})

	uiCalls := 0
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Spawner: spawner,
		Interface: func(conn ipc.Conn) error {
			uiCalls++
			return nil
		},
	}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "-I", "-a", "-p", song})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, 1, spawns)
	require.Equal(t, 1, uiCalls)
	require.Contains(t, stdout.String(), "Running the server...")

	require.Equal(t, []string{"PING", "LIST_ADD", "str:" + song, "PLAY", "str:"}, rec.next(t))
}

// Scenario B: a running server, one-shot --stop.
func TestRunnerOneShotStop(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.Mkdir(paths.controlDir, 0o700))
	rec := startRecorder(t, ipc.SocketPath(paths.controlDir))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Spawner: failSpawner(t)}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "--stop"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, []string{"PING", "STOP", "DISCONNECT"}, rec.next(t))
}

func TestRunnerOneShotTogglePause(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.Mkdir(paths.controlDir, 0o700))
	rec := startRecorder(t, ipc.SocketPath(paths.controlDir))

	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Spawner: failSpawner(t)}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "-G"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, []string{"PING", "GET_STATE", "PAUSE", "DISCONNECT"}, rec.next(t))
}

// Scenario C: no server, one-shot actions never launch one.
func TestRunnerOneShotWithoutServer(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr, Spawner: failSpawner(t)}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "-s"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "server is not running")
	require.NotContains(t, stdout.String(), "Running the server")
}

func TestRunnerServerFlagRefusesRunningServer(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.Mkdir(paths.controlDir, 0o700))
	rec := startRecorder(t, ipc.SocketPath(paths.controlDir))

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Spawner: failSpawner(t)}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "-S"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "server is already running")
	require.Empty(t, rec.next(t))
}

func TestRunnerServerFlagLaunchesAndDetaches(t *testing.T) {
	paths := setupRunnerEnv(t)
	endpoint := ipc.SocketPath(paths.controlDir)

	var rec *recorder
	runner := Runner{
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		Spawner: launcher.SpawnerFunc(func(ready *os.File) error {
			rec = startRecorder(t, endpoint)
			return protocol.WriteInt(ready, 1)
		}),
	}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "-S"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, []string{"PING", "DISCONNECT"}, rec.next(t))
}

func TestRunnerLaunchFailureWhenChildExits(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stderr bytes.Buffer
	runner := Runner{
		Stdout:  &bytes.Buffer{},
		Stderr:  &stderr,
		Spawner: launcher.SpawnerFunc(func(*os.File) error { return nil }),
		Interface: func(ipc.Conn) error {
			t.Fatal("interface must not run")
			return nil
		},
	}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "server exited")
}

func TestRunnerInsecureControlDir(t *testing.T) {
	paths := setupRunnerEnv(t)
	require.NoError(t, os.Mkdir(paths.controlDir, 0o700))
	require.NoError(t, os.Chmod(paths.controlDir, 0o777))

	var stderr bytes.Buffer
	runner := Runner{Stdout: &bytes.Buffer{}, Stderr: &stderr, Spawner: failSpawner(t)}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "-s"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "insecure control directory")
}

func TestRunnerForegroundServerServesUntilQuit(t *testing.T) {
	paths := setupRunnerEnv(t)
	endpoint := ipc.SocketPath(paths.controlDir)

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	done := make(chan int, 1)
	go func() {
		done <- runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "-F"})
	}()

	session := waitForServer(t, endpoint)
	defer session.Close()
	require.NoError(t, session.Send(protocol.CommandQuit))

	select {
	case code := <-done:
		require.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("foreground server did not stop on QUIT")
	}
	require.Contains(t, stdout.String(), "server loop start")
	require.FileExists(t, paths.stateDB)
}

func TestRunnerServerChildSignalsReadiness(t *testing.T) {
	paths := setupRunnerEnv(t)
	endpoint := ipc.SocketPath(paths.controlDir)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	gotFD := make(chan int, 1)
	runner := Runner{
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
		openReadyFD: func(fd int) *os.File {
			gotFD <- fd
			return w
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan int, 1)
	go func() {
		done <- runner.Execute(ctx, []string{"--server", "--ready-fd=3", "-C", paths.configPath, "-M", paths.controlDir})
	}()

	sentinel, err := protocol.ReadInt(r)
	require.NoError(t, err)
	require.Equal(t, readySentinel, sentinel)
	require.Equal(t, launcher.ReadyFD, <-gotFD)

	session, err := ipc.Connect(endpoint)
	require.NoError(t, err)
	require.True(t, ipc.Ping(session))
	require.NoError(t, session.Close())

	cancel()
	require.Equal(t, 0, <-done)
}

func TestRunnerServerChildRejectsClosedReadyFD(t *testing.T) {
	paths := setupRunnerEnv(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, w.Close())

	var stderr bytes.Buffer
	runner := Runner{
		Stdout:      &bytes.Buffer{},
		Stderr:      &stderr,
		openReadyFD: func(int) *os.File { return w },
	}

	exitCode := runner.Execute(context.Background(), []string{"--server", "--ready-fd=3", "-C", paths.configPath, "-M", paths.controlDir})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "readiness descriptor 3 is not open")
	_, err = os.Stat(ipc.SocketPath(paths.controlDir))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunnerDoctorPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &bytes.Buffer{}}

	exitCode := runner.Execute(context.Background(), []string{"-C", paths.configPath, "-M", paths.controlDir, "--doctor"})
	require.Equal(t, 0, exitCode, stdout.String())
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "server: not running")
	_, err := os.Stat(paths.controlDir)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(paths.stateDB)
	require.ErrorIs(t, err, os.ErrNotExist)
}

type runnerPaths struct {
	configPath string
	controlDir string
	stateDB    string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	base := t.TempDir()
	stateDB := filepath.Join(base, "state.db")
	configPath := filepath.Join(base, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("state_db = \""+stateDB+"\"\n"), 0o600))

	return runnerPaths{
		configPath: configPath,
		controlDir: filepath.Join(base, "ctl"),
		stateDB:    stateDB,
	}
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func failSpawner(t *testing.T) launcher.Spawner {
	return launcher.SpawnerFunc(func(*os.File) error {
		t.Error("server must not be launched")
		return errors.New("unexpected spawn")
	})
}

func waitForServer(t *testing.T, endpoint string) *ipc.Session {
	t.Helper()
	var session *ipc.Session
	require.Eventually(t, func() bool {
		s, err := ipc.Connect(endpoint)
		if err != nil {
			return false
		}
		if !ipc.Ping(s) {
			_ = s.Close()
			return false
		}
		session = s
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return session
}

// recorder is a minimal server that answers PING and GET_STATE and records
// every command of each connection.
type recorder struct {
	sessions chan []string
}

func startRecorder(t *testing.T, endpoint string) *recorder {
	t.Helper()

	listener, err := ipc.Listen(endpoint)
	require.NoError(t, err)

	rec := &recorder{sessions: make(chan []string, 8)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(rec.serve))
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return rec
}

func (rec *recorder) serve(_ context.Context, conn net.Conn) {
	var got []string
	defer func() { rec.sessions <- got }()

	for {
		cmd, err := protocol.ReceiveCommand(conn)
		if err != nil {
			return
		}
		got = append(got, cmd.String())

		switch cmd {
		case protocol.CommandPing:
			_ = protocol.SendEvent(conn, protocol.EventPong)
		case protocol.CommandGetState:
			_ = protocol.SendData(conn, int32(protocol.StatePlay))
		case protocol.CommandListAdd, protocol.CommandPlay, protocol.CommandQueueAdd,
			protocol.CommandCliPlistAdd:
			s, err := protocol.ReadString(conn)
			if err != nil {
				return
			}
			got = append(got, "str:"+s)
		}
	}
}

func (rec *recorder) next(t *testing.T) []string {
	t.Helper()
	select {
	case got := <-rec.sessions:
		return got
	case <-time.After(5 * time.Second):
		t.Fatal("no recorded session")
		return nil
	}
}
