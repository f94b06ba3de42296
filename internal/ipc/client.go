package ipc

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rbright/cadence/internal/protocol"
)

var (
	ErrNotRunning    = errors.New("server is not running")
	ErrSessionBroken = errors.New("session is no longer usable")
)

// Conn is the command/event surface of a Session.
type Conn interface {
	Send(protocol.Command) error
	SendInt(int32) error
	SendString(string) error
	Receive() (protocol.Message, error)
}

// Session is one client connection to the control endpoint. Any transport
// or decode failure leaves it broken; it is closed exactly once.
type Session struct {
	conn net.Conn

	mu     sync.Mutex
	broken error

	closeOnce sync.Once
	closeErr  error
}

// Connect opens a stream connection to endpoint. Every failure is reported
// as ErrNotRunning; there is no retry and no timeout.
func Connect(endpoint string) (*Session, error) {
	conn, err := net.Dial("unix", endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrNotRunning, err)
	}
	return NewSession(conn), nil
}

// NewSession wraps an established connection.
func NewSession(conn net.Conn) *Session {
	return &Session{conn: conn}
}

func (s *Session) Send(cmd protocol.Command) error {
	return s.do(func() error { return protocol.SendCommand(s.conn, cmd) }, "send "+cmd.String())
}

// SendBestEffort writes cmd and ignores any failure without marking the
// Session broken. Only the handshake uses it.
func (s *Session) SendBestEffort(cmd protocol.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken == nil {
		_ = protocol.SendCommand(s.conn, cmd)
	}
}

func (s *Session) SendInt(v int32) error {
	return s.do(func() error { return protocol.WriteInt(s.conn, v) }, "send int")
}

func (s *Session) SendString(str string) error {
	return s.do(func() error { return protocol.WriteString(s.conn, str) }, "send string")
}

func (s *Session) Receive() (protocol.Message, error) {
	var msg protocol.Message
	err := s.do(func() error {
		var err error
		msg, err = protocol.ReceiveEvent(s.conn)
		return err
	}, "receive event")
	return msg, err
}

func (s *Session) do(op func() error, what string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken != nil {
		return fmt.Errorf("%s: %w", what, ErrSessionBroken)
	}
	if err := op(); err != nil {
		s.broken = err
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// Close releases the connection. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.broken == nil {
			s.broken = net.ErrClosed
		}
		s.mu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
