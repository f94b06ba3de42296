// Package server is the background player. It owns the control socket and
// applies client commands to an in-memory Player.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/protocol"
	"github.com/rbright/cadence/internal/state"
)

var ErrUnknownCommand = errors.New("unknown command")

// Store persists the player between runs.
type Store interface {
	Load() (*state.Snapshot, error)
	Save(state.Snapshot) error
}

type Options struct {
	// MaxClients caps concurrent connections; zero means unlimited.
	MaxClients int
	Defaults   Settings
	Store      Store
	Logger     *slog.Logger
	Now        func() time.Time
}

type Server struct {
	maxClients int
	store      Store
	logger     *slog.Logger

	mu      sync.Mutex
	player  *Player
	clients int
	quit    context.CancelFunc
}

// Init binds the control socket. The server is ready for clients once it
// returns.
func Init(endpoint string) (net.Listener, error) {
	listener, err := ipc.Listen(endpoint)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", endpoint, err)
	}
	return listener, nil
}

// New builds a Server, restoring saved state from opts.Store when present.
func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	player := NewPlayer(opts.Defaults, opts.Now)
	if opts.Store != nil {
		snap, err := opts.Store.Load()
		if err != nil {
			return nil, fmt.Errorf("load player state: %w", err)
		}
		if snap != nil {
			player.Restore(*snap)
			logger.Info("player state restored", "tracks", len(snap.Playlist))
		}
	}

	return &Server{
		maxClients: opts.MaxClients,
		store:      opts.Store,
		logger:     logger,
		player:     player,
	}, nil
}

// Loop serves clients until ctx ends or a client sends QUIT, then saves
// the player state.
func (s *Server) Loop(ctx context.Context, listener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.quit = cancel
	s.mu.Unlock()

	s.logger.Info("server loop start", "endpoint", listener.Addr().String(), "max_clients", s.maxClients)
	serveErr := ipc.Serve(ctx, listener, s)

	if err := s.save(); err != nil {
		s.logger.Error("save player state failed", "error", err.Error())
		if serveErr == nil {
			serveErr = err
		}
	}
	s.logger.Info("server loop stop")
	return serveErr
}

func (s *Server) save() error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	snap := s.player.Snapshot()
	s.mu.Unlock()
	return s.store.Save(snap)
}

// ServeConn runs one client's command loop.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	if !s.admit() {
		s.logger.Warn("client rejected", "reason", "busy")
		_ = protocol.SendEvent(conn, protocol.EventBusy)
		return
	}
	defer s.release()

	for {
		cmd, err := protocol.ReceiveCommand(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("client read failed", "error", err.Error())
			}
			return
		}

		done, err := s.handle(conn, cmd)
		if err != nil {
			s.logger.Warn("client dropped", "command", cmd.String(), "error", err.Error())
			return
		}
		if done {
			return
		}
	}
}

func (s *Server) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxClients > 0 && s.clients >= s.maxClients {
		return false
	}
	s.clients++
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.clients--
	s.mu.Unlock()
}

// handle applies one command. done ends the connection without error.
func (s *Server) handle(conn net.Conn, cmd protocol.Command) (done bool, err error) {
	s.logger.Debug("command", "command", cmd.String())

	switch cmd {
	case protocol.CommandPing:
		return false, protocol.SendEvent(conn, protocol.EventPong)
	case protocol.CommandDisconnect:
		return true, nil
	case protocol.CommandQuit:
		_ = protocol.SendEvent(conn, protocol.EventExit)
		s.mu.Lock()
		quit := s.quit
		s.mu.Unlock()
		if quit != nil {
			quit()
		}
		return true, nil

	case protocol.CommandPlay:
		file, err := protocol.ReadString(conn)
		if err != nil {
			return false, err
		}
		s.withPlayer(cmd, func(p *Player) error { return p.Play(file) })
	case protocol.CommandStop:
		s.withPlayer(cmd, (*Player).Stop)
	case protocol.CommandPause:
		s.withPlayer(cmd, (*Player).Pause)
	case protocol.CommandUnpause:
		s.withPlayer(cmd, (*Player).Unpause)
	case protocol.CommandNext:
		s.withPlayer(cmd, (*Player).Next)
	case protocol.CommandPrev:
		s.withPlayer(cmd, (*Player).Prev)

	case protocol.CommandListClear:
		s.withPlayer(cmd, func(p *Player) error { p.ClearPlaylist(); return nil })
	case protocol.CommandCliPlistClear:
		s.withPlayer(cmd, func(p *Player) error { p.ClearClientList(); return nil })
	case protocol.CommandListAdd, protocol.CommandCliPlistAdd, protocol.CommandQueueAdd:
		path, err := protocol.ReadString(conn)
		if err != nil {
			return false, err
		}
		s.withPlayer(cmd, func(p *Player) error {
			switch cmd {
			case protocol.CommandListAdd:
				p.AddToPlaylist(path)
			case protocol.CommandCliPlistAdd:
				p.AddToClientList(path)
			default:
				p.Enqueue(path)
			}
			return nil
		})

	case protocol.CommandSeek, protocol.CommandJumpTo, protocol.CommandJumpPercent, protocol.CommandSetMixer:
		v, err := protocol.ReadInt(conn)
		if err != nil {
			return false, err
		}
		s.withPlayer(cmd, func(p *Player) error {
			switch cmd {
			case protocol.CommandSeek:
				p.Seek(int(v))
			case protocol.CommandJumpTo:
				p.JumpTo(int(v))
			case protocol.CommandJumpPercent:
				p.JumpPercent(int(v))
			default:
				p.SetVolume(int(v))
			}
			return nil
		})

	case protocol.CommandSetOption:
		name, err := protocol.ReadString(conn)
		if err != nil {
			return false, err
		}
		v, err := protocol.ReadInt(conn)
		if err != nil {
			return false, err
		}
		s.withPlayer(cmd, func(p *Player) error {
			if !p.SetOption(name, v != 0) {
				return fmt.Errorf("unknown option %q", name)
			}
			return nil
		})
	case protocol.CommandGetOption:
		name, err := protocol.ReadString(conn)
		if err != nil {
			return false, err
		}
		s.mu.Lock()
		on, ok := s.player.Option(name)
		s.mu.Unlock()
		if !ok {
			return false, protocol.SendEvent(conn, protocol.EventSrvError)
		}
		return false, protocol.SendData(conn, boolToInt(on))

	case protocol.CommandGetState:
		return false, s.replyData(conn, func(p *Player) int { return int(p.State().Wire()) })
	case protocol.CommandGetCTime:
		return false, s.replyData(conn, (*Player).CurrentSec)
	case protocol.CommandGetTTime:
		return false, s.replyData(conn, (*Player).TotalSec)
	case protocol.CommandGetMixer:
		return false, s.replyData(conn, (*Player).Volume)
	case protocol.CommandGetSName:
		s.mu.Lock()
		file := s.player.File()
		s.mu.Unlock()
		return false, protocol.SendText(conn, file)
	case protocol.CommandGetTag:
		name, err := protocol.ReadString(conn)
		if err != nil {
			return false, err
		}
		s.mu.Lock()
		value := s.player.Tags().Lookup(name)
		s.mu.Unlock()
		return false, protocol.SendText(conn, value)

	default:
		return false, fmt.Errorf("%w %s", ErrUnknownCommand, cmd)
	}
	return false, nil
}

// withPlayer runs a command that has no reply. Rejected transitions such as
// PAUSE while stopped are logged and otherwise ignored.
func (s *Server) withPlayer(cmd protocol.Command, fn func(*Player) error) {
	s.mu.Lock()
	err := fn(s.player)
	s.mu.Unlock()
	if err != nil {
		s.logger.Debug("command ignored", "command", cmd.String(), "error", err.Error())
	}
}

func (s *Server) replyData(conn net.Conn, value func(*Player) int) error {
	s.mu.Lock()
	v := value(s.player)
	s.mu.Unlock()
	return protocol.SendData(conn, int32(v))
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
