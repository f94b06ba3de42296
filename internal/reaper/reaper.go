// Package reaper collects terminated children so released processes do not
// linger as zombies.
package reaper

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// Waiter performs one non-blocking wait for any child. It returns a pid
// greater than zero while terminated children remain.
type Waiter func() (int, error)

// WaitAny is the Waiter backed by wait4(-1, WNOHANG).
func WaitAny() (int, error) {
	return unix.Wait4(-1, nil, unix.WNOHANG, nil)
}

// ReapOnce waits until no terminated child remains and returns how many
// were collected. Exit statuses are discarded.
func ReapOnce(wait Waiter) int {
	reaped := 0
	for {
		pid, err := wait()
		if err != nil || pid <= 0 {
			return reaped
		}
		reaped++
	}
}

// Start reaps on every SIGCHLD until ctx ends or stop is called. The
// goroutine only waits and logs; it never touches a Session.
func Start(ctx context.Context, logger *slog.Logger) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGCHLD)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				if n := ReapOnce(WaitAny); n > 0 && logger != nil {
					logger.Debug("reaped children", "count", n)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			cancel()
			wg.Wait()
		})
	}
}
