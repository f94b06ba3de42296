package ipc

import "github.com/rbright/cadence/internal/protocol"

// Pinger is the subset of a Session the handshake needs.
type Pinger interface {
	SendBestEffort(protocol.Command)
	Receive() (protocol.Message, error)
}

// Ping reports whether the server answers PING with PONG.
//
// The PING is sent best-effort: a busy server may reply BUSY and close
// before the PING lands, and that reply must still be read below. This is
// the only place a transport error is tolerated.
func Ping(c Pinger) bool {
	c.SendBestEffort(protocol.CommandPing)

	msg, err := c.Receive()
	if err != nil {
		return false
	}
	return msg.Event == protocol.EventPong
}
