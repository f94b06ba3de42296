package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Handler serves one accepted client connection until it returns.
type Handler interface {
	ServeConn(context.Context, net.Conn)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, net.Conn)

func (f HandlerFunc) ServeConn(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

// Serve accepts unix-socket clients until context cancellation or listener
// close, then waits for in-flight connections to finish.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept client connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()
			stop := context.AfterFunc(ctx, func() { _ = c.Close() })
			defer stop()

			handler.ServeConn(ctx, c)
		}(conn)
	}
}
