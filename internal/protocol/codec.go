package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// IntSize is the width in bytes of every integer on the wire.
const IntSize = 4

// MaxStringLen bounds string payloads accepted by ReadString.
const MaxStringLen = 64 << 10

var ErrStringTooLong = errors.New("string payload exceeds limit")

// WriteInt writes v as one host-endian int32. A short write is an error.
func WriteInt(w io.Writer, v int32) error {
	var buf [IntSize]byte
	binary.NativeEndian.PutUint32(buf[:], uint32(v))
	n, err := w.Write(buf[:])
	if err != nil {
		return err
	}
	if n != IntSize {
		return io.ErrShortWrite
	}
	return nil
}

// ReadInt reads exactly one host-endian int32. Fewer bytes yield io.ErrUnexpectedEOF.
func ReadInt(r io.Reader) (int32, error) {
	var buf [IntSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.NativeEndian.Uint32(buf[:])), nil
}

// WriteString writes a length-prefixed byte string.
func WriteString(w io.Writer, s string) error {
	if len(s) > MaxStringLen {
		return ErrStringTooLong
	}
	if err := WriteInt(w, int32(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	n, err := io.WriteString(w, s)
	if err != nil {
		return err
	}
	if n != len(s) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadString reads a length-prefixed byte string.
func ReadString(r io.Reader) (string, error) {
	n, err := ReadInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 || n > MaxStringLen {
		return "", fmt.Errorf("%w: %d bytes", ErrStringTooLong, n)
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(buf), nil
}

// SendCommand writes one command code.
func SendCommand(w io.Writer, cmd Command) error {
	return WriteInt(w, int32(cmd))
}

// ReceiveEvent reads one event and, for DATA or TEXT, its single payload.
func ReceiveEvent(r io.Reader) (Message, error) {
	code, err := ReadInt(r)
	if err != nil {
		return Message{}, err
	}

	msg := Message{Event: Event(code)}
	switch msg.Event {
	case EventData:
		value, err := ReadInt(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return Message{}, fmt.Errorf("read DATA payload: %w", err)
		}
		msg.Value = value
	case EventText:
		text, err := ReadString(r)
		if err != nil {
			return Message{}, fmt.Errorf("read TEXT payload: %w", err)
		}
		msg.Text = text
	}
	return msg, nil
}

// ReceiveCommand reads one command code on the server side.
func ReceiveCommand(r io.Reader) (Command, error) {
	code, err := ReadInt(r)
	if err != nil {
		return 0, err
	}
	return Command(code), nil
}

// SendEvent writes one payload-free event code.
func SendEvent(w io.Writer, ev Event) error {
	return WriteInt(w, int32(ev))
}

// SendData writes a DATA event followed by its integer payload.
func SendData(w io.Writer, value int32) error {
	if err := SendEvent(w, EventData); err != nil {
		return err
	}
	return WriteInt(w, value)
}

// SendText writes a TEXT event followed by its string payload.
func SendText(w io.Writer, text string) error {
	if err := SendEvent(w, EventText); err != nil {
		return err
	}
	return WriteString(w, text)
}
