package reaper

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestReapOnceStopsWhenNoChildRemains(t *testing.T) {
	pids := []int{41, 42, 0}
	calls := 0
	wait := func() (int, error) {
		pid := pids[calls]
		calls++
		return pid, nil
	}

	require.Equal(t, 2, ReapOnce(wait))
	require.Equal(t, 3, calls)
}

func TestReapOnceStopsOnError(t *testing.T) {
	calls := 0
	wait := func() (int, error) {
		calls++
		return -1, unix.ECHILD
	}

	require.Zero(t, ReapOnce(wait))
	require.Equal(t, 1, calls)
}

func TestReapOnceWithoutChildrenDoesNotBlock(t *testing.T) {
	done := make(chan int, 1)
	go func() { done <- ReapOnce(WaitAny) }()

	select {
	case n := <-done:
		require.Zero(t, n)
	case <-time.After(5 * time.Second):
		t.Fatal("ReapOnce blocked with no children")
	}
}

func spawnReleased(t *testing.T) int {
	t.Helper()
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	cmd := exec.Command(path)
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	require.NoError(t, cmd.Process.Release())
	return pid
}

// gone reports whether pid no longer exists, zombie included.
func gone(pid int) bool {
	return errors.Is(unix.Kill(pid, 0), unix.ESRCH)
}

func TestReapOnceCollectsExitedChild(t *testing.T) {
	pid := spawnReleased(t)

	reaped := 0
	for attempt := 0; attempt < 200 && !gone(pid); attempt++ {
		reaped += ReapOnce(WaitAny)
		time.Sleep(10 * time.Millisecond)
	}

	require.True(t, gone(pid))
	require.Equal(t, 1, reaped)
	require.Zero(t, ReapOnce(WaitAny))
}

func TestStartReapsOnSIGCHLD(t *testing.T) {
	stop := Start(context.Background(), nil)
	defer stop()

	pid := spawnReleased(t)

	require.Eventually(t, func() bool { return gone(pid) }, 5*time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := Start(ctx, nil)
	cancel()
	stop()
	stop()
}
