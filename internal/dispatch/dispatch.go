// Package dispatch turns requested actions into an ordered command sequence on one Session.
package dispatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/cadence/internal/actions"
	"github.com/rbright/cadence/internal/fault"
	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/protocol"
)

// Mode selects how a dispatch ends.
type Mode int

const (
	// OneShot runs at most one terminal action and always leaves the server
	// with DISCONNECT or QUIT.
	OneShot Mode = iota
	// Interactive sends no terminal action and no DISCONNECT; the caller
	// keeps using the Session.
	Interactive
)

var ErrUnexpectedEvent = errors.New("unexpected event from server")

// Dispatcher drives one ping-verified Session.
type Dispatcher struct {
	conn   ipc.Conn
	out    io.Writer
	logger *slog.Logger
}

// New builds a Dispatcher writing query output to out.
func New(conn ipc.Conn, out io.Writer, logger *slog.Logger) *Dispatcher {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{conn: conn, out: out, logger: logger}
}

type step struct {
	name string
	run  func() error
}

// Run executes req in the fixed order. The first failure aborts everything
// after it; nothing already sent is undone.
func (d *Dispatcher) Run(req *actions.Requested, mode Mode) error {
	var files []string
	if req.PlayIt || req.Append || req.Enqueue {
		resolved, err := ResolveFiles(req.Files)
		if err != nil {
			return fault.Usage(err)
		}
		files = resolved
	}

	steps := d.plan(req, files, mode)
	for _, s := range steps {
		d.logger.Debug("dispatch step", "step", s.name)
		if err := s.run(); err != nil {
			d.logger.Error("dispatch step failed", "step", s.name, "error", err.Error())
			return fault.Protocol(fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return nil
}

func (d *Dispatcher) plan(req *actions.Requested, files []string, mode Mode) []step {
	var steps []step
	add := func(when bool, name string, run func() error) {
		if when {
			steps = append(steps, step{name: name, run: run})
		}
	}

	add(req.PlayIt, "play files", func() error { return d.playIt(files) })
	add(req.Clear, "clear playlist", func() error { return d.conn.Send(protocol.CommandListClear) })
	add(req.Append, "append", func() error { return d.addAll(protocol.CommandListAdd, files) })
	add(req.Enqueue, "enqueue", func() error { return d.addAll(protocol.CommandQueueAdd, files) })
	add(req.PlayFirst, "play first", func() error { return d.sendWithString(protocol.CommandPlay, "") })
	add(req.FileInfo, "file info", d.fileInfo)
	add(req.SeekBy != 0, "seek", func() error { return d.sendWithInt(protocol.CommandSeek, req.SeekBy) })
	add(req.JumpUnit == actions.JumpPercent, "jump to percent", func() error {
		return d.sendWithInt(protocol.CommandJumpPercent, req.JumpTo)
	})
	add(req.JumpUnit == actions.JumpSeconds, "jump to", func() error {
		return d.sendWithInt(protocol.CommandJumpTo, req.JumpTo)
	})
	add(req.Format != nil, "formatted info", func() error { return d.formattedInfo(*req.Format) })
	add(req.Volume != nil, "adjust volume", func() error { return d.adjustVolume(*req.Volume) })
	add(len(req.Toggle) > 0, "toggle control", func() error { return d.toggleControls(req.Toggle) })
	add(len(req.On) > 0, "control on", func() error { return d.setControls(req.On, true) })
	add(len(req.Off) > 0, "control off", func() error { return d.setControls(req.Off, false) })

	if mode == Interactive {
		return steps
	}

	terminal := req.Terminal()
	add(true, "terminal "+terminal.String(), func() error { return d.terminal(terminal) })
	return steps
}

func (d *Dispatcher) terminal(t actions.Terminal) error {
	switch t {
	case actions.TerminalQuit:
		return d.conn.Send(protocol.CommandQuit)
	case actions.TerminalStop:
		return d.sendThenDisconnect(protocol.CommandStop)
	case actions.TerminalPause:
		return d.sendThenDisconnect(protocol.CommandPause)
	case actions.TerminalNext:
		return d.sendThenDisconnect(protocol.CommandNext)
	case actions.TerminalPrevious:
		return d.sendThenDisconnect(protocol.CommandPrev)
	case actions.TerminalUnpause:
		return d.sendThenDisconnect(protocol.CommandUnpause)
	case actions.TerminalTogglePause:
		if err := TogglePause(d.conn); err != nil {
			return err
		}
		return d.conn.Send(protocol.CommandDisconnect)
	default:
		return d.conn.Send(protocol.CommandDisconnect)
	}
}

func (d *Dispatcher) sendThenDisconnect(cmd protocol.Command) error {
	if err := d.conn.Send(cmd); err != nil {
		return err
	}
	return d.conn.Send(protocol.CommandDisconnect)
}

// TogglePause reads the playback state and sends UNPAUSE when paused,
// PAUSE when playing, and nothing otherwise.
func TogglePause(c ipc.Conn) error {
	state, err := requestData(c, protocol.CommandGetState)
	if err != nil {
		return err
	}

	switch protocol.PlayState(state) {
	case protocol.StatePause:
		return c.Send(protocol.CommandUnpause)
	case protocol.StatePlay:
		return c.Send(protocol.CommandPause)
	default:
		return nil
	}
}

func (d *Dispatcher) playIt(files []string) error {
	if err := d.conn.Send(protocol.CommandCliPlistClear); err != nil {
		return err
	}
	if err := d.addAll(protocol.CommandCliPlistAdd, files); err != nil {
		return err
	}
	first := ""
	if len(files) > 0 {
		first = files[0]
	}
	return d.sendWithString(protocol.CommandPlay, first)
}

func (d *Dispatcher) addAll(cmd protocol.Command, files []string) error {
	for _, file := range files {
		if err := d.sendWithString(cmd, file); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) sendWithString(cmd protocol.Command, arg string) error {
	if err := d.conn.Send(cmd); err != nil {
		return err
	}
	return d.conn.SendString(arg)
}

func (d *Dispatcher) sendWithInt(cmd protocol.Command, arg int) error {
	if err := d.conn.Send(cmd); err != nil {
		return err
	}
	return d.conn.SendInt(int32(arg))
}

func (d *Dispatcher) adjustVolume(change actions.VolumeChange) error {
	return AdjustVolume(d.conn, change)
}

// AdjustVolume sets the mixer, reading the current level first when the
// change is relative.
func AdjustVolume(c ipc.Conn, change actions.VolumeChange) error {
	current := 0
	if change.Relative {
		level, err := requestData(c, protocol.CommandGetMixer)
		if err != nil {
			return err
		}
		current = int(level)
	}
	if err := c.Send(protocol.CommandSetMixer); err != nil {
		return err
	}
	return c.SendInt(int32(change.Apply(current)))
}

func (d *Dispatcher) toggleControls(controls []actions.Control) error {
	for _, control := range controls {
		if err := d.conn.Send(protocol.CommandGetOption); err != nil {
			return err
		}
		if err := d.conn.SendString(string(control)); err != nil {
			return err
		}
		value, err := receiveData(d.conn)
		if err != nil {
			return err
		}
		if err := d.setControl(control, value == 0); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) setControls(controls []actions.Control, on bool) error {
	for _, control := range controls {
		if err := d.setControl(control, on); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) setControl(control actions.Control, on bool) error {
	if err := d.sendWithString(protocol.CommandSetOption, string(control)); err != nil {
		return err
	}
	value := int32(0)
	if on {
		value = 1
	}
	return d.conn.SendInt(value)
}

func requestData(c ipc.Conn, cmd protocol.Command) (int32, error) {
	if err := c.Send(cmd); err != nil {
		return 0, err
	}
	return receiveData(c)
}

func receiveData(c ipc.Conn) (int32, error) {
	msg, err := c.Receive()
	if err != nil {
		return 0, err
	}
	if msg.Event != protocol.EventData {
		return 0, fmt.Errorf("%w: %s, want DATA", ErrUnexpectedEvent, msg.Event)
	}
	return msg.Value, nil
}

func requestText(c ipc.Conn, cmd protocol.Command, arg *string) (string, error) {
	if err := c.Send(cmd); err != nil {
		return "", err
	}
	if arg != nil {
		if err := c.SendString(*arg); err != nil {
			return "", err
		}
	}
	msg, err := c.Receive()
	if err != nil {
		return "", err
	}
	if msg.Event != protocol.EventText {
		return "", fmt.Errorf("%w: %s, want TEXT", ErrUnexpectedEvent, msg.Event)
	}
	return msg.Text, nil
}
