package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/cadence/internal/cli"
	"github.com/rbright/cadence/internal/config"
	"github.com/rbright/cadence/internal/dispatch"
	"github.com/rbright/cadence/internal/doctor"
	"github.com/rbright/cadence/internal/fault"
	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/launcher"
	"github.com/rbright/cadence/internal/logging"
	"github.com/rbright/cadence/internal/protocol"
	"github.com/rbright/cadence/internal/reaper"
	"github.com/rbright/cadence/internal/server"
	"github.com/rbright/cadence/internal/state"
	"github.com/rbright/cadence/internal/ui"
	"github.com/rbright/cadence/internal/version"
)

var ErrDoctorFailed = errors.New("doctor checks failed")

// readySentinel is written once to the readiness pipe after the listener
// is bound.
const readySentinel int32 = 0

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Spawner starts the background server; nil re-executes this binary.
	Spawner launcher.Spawner
	// Interface runs the interactive UI on a ping-verified Session.
	Interface func(ipc.Conn) error

	openReadyFD func(fd int) *os.File
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute runs one invocation and returns the process exit status. It is
// the only place errors are printed.
func (r Runner) Execute(ctx context.Context, args []string) int {
	err := r.run(ctx, args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		if fault.KindOf(err) == fault.KindUsage {
			fmt.Fprint(r.Stderr, cli.UsageText())
		}
	}
	return fault.ExitCode(err)
}

func (r Runner) run(ctx context.Context, args []string) (err error) {
	parsed, err := cli.Parse(args)
	if err != nil {
		return fault.Usage(err)
	}
	serving := parsed.Server && (parsed.Foreground || parsed.ReadyFD > 0)
	if !serving {
		// Clients keep the default SIGINT and SIGTERM actions so a
		// server that never answers cannot make them uninterruptible.
		signal.Reset(os.Interrupt, syscall.SIGTERM)
	}

	switch {
	case parsed.ShowHelp:
		fmt.Fprint(r.Stdout, cli.HelpText())
		return nil
	case parsed.ShowUsage:
		fmt.Fprint(r.Stdout, cli.UsageText())
		return nil
	case parsed.ShowVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return nil
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath, parsed.Overrides)
	if err != nil {
		if errors.Is(err, config.ErrBadOverride) {
			return fault.Usage(err)
		}
		return fault.Config(err)
	}
	if parsed.ControlDir != "" {
		if cfgLoaded.Config.ControlDir, err = config.ExpandPath(parsed.ControlDir); err != nil {
			return fault.Config(err)
		}
	}
	cfg := cfgLoaded.Config

	logRuntime, err := r.setupLogging(parsed, cfg)
	if err != nil {
		return fault.Config(fmt.Errorf("setup logging: %w", err))
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}
	defer func() {
		if err != nil {
			logger.Error("command failed", "kind", fault.KindOf(err).String(), "error", err.Error())
		}
	}()

	for _, w := range cfgLoaded.Warnings {
		if !parsed.Server {
			fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		}
		logger.Warn("config warning", "message", w.Message)
	}

	endpoint := ipc.SocketPath(cfg.ControlDir)
	logger.Info("command start",
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
		"endpoint", endpoint,
		"server", parsed.Server,
		"one_shot", parsed.OneShot(),
	)

	if parsed.Doctor {
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if !report.OK() {
			return fault.Config(ErrDoctorFailed)
		}
		return nil
	}

	if err := ipc.EnsureControlDir(cfg.ControlDir); err != nil {
		return fault.Config(err)
	}

	switch {
	case serving:
		return r.serve(ctx, parsed, cfg, endpoint, logger)
	case parsed.Server:
		return r.startServer(parsed, endpoint, logger)
	case parsed.OneShot():
		return r.oneShot(parsed, endpoint, logger)
	default:
		return r.interactive(ctx, parsed, endpoint, logger)
	}
}

func (r Runner) setupLogging(parsed cli.Parsed, cfg config.Config) (logging.Runtime, error) {
	level := cfg.Level()
	if parsed.Debug {
		level = slog.LevelDebug
	}
	if parsed.Foreground {
		return logging.NewWriter(r.Stdout, level), nil
	}
	role := logging.RoleClient
	if parsed.Server {
		role = logging.RoleServer
	}
	return logging.New(role, level)
}

// oneShot dispatches against a server that must already be running.
func (r Runner) oneShot(parsed cli.Parsed, endpoint string, logger *slog.Logger) error {
	session, err := ipc.Connect(endpoint)
	if err != nil {
		return fault.Connection(err)
	}
	defer session.Close()

	if !ipc.Ping(session) {
		return fault.Connection(launcher.ErrCannotConnect)
	}
	return dispatch.New(session, r.Stdout, logger).Run(&parsed.Actions, dispatch.OneShot)
}

// interactive launches the server when needed, runs playlist actions on
// the same Session, then hands it to the interface.
func (r Runner) interactive(ctx context.Context, parsed cli.Parsed, endpoint string, logger *slog.Logger) error {
	stopReaper := reaper.Start(ctx, logger)
	defer stopReaper()

	session, _, err := r.launcher(parsed, endpoint, logger).Ensure(true)
	if err != nil {
		return classifyLaunch(err)
	}
	defer session.Close()

	if !ipc.Ping(session) {
		return fault.Connection(launcher.ErrCannotConnect)
	}
	if parsed.Actions.Any() {
		if err := dispatch.New(session, r.Stdout, logger).Run(&parsed.Actions, dispatch.Interactive); err != nil {
			return err
		}
	}

	runUI := r.Interface
	if runUI == nil {
		runUI = func(conn ipc.Conn) error { return ui.Run(conn, r.Stdin, r.Stdout) }
	}
	if err := runUI(session); err != nil {
		return fault.Protocol(err)
	}
	return nil
}

// startServer is -S without -F: launch a background server and detach.
func (r Runner) startServer(parsed cli.Parsed, endpoint string, logger *slog.Logger) error {
	session, launched, err := r.launcher(parsed, endpoint, logger).Ensure(true)
	if err != nil {
		return classifyLaunch(err)
	}
	defer session.Close()

	if !launched {
		return fault.Launch(ipc.ErrAlreadyRunning)
	}
	if !ipc.Ping(session) {
		return fault.Connection(launcher.ErrCannotConnect)
	}
	if err := session.Send(protocol.CommandDisconnect); err != nil {
		return fault.Protocol(err)
	}
	return nil
}

// serve runs the server in this process: in the foreground, or as the
// re-executed child that reports readiness on ReadyFD.
func (r Runner) serve(ctx context.Context, parsed cli.Parsed, cfg config.Config, endpoint string, logger *slog.Logger) error {
	dbPath, err := state.ResolvePath(cfg.StateDB)
	if err != nil {
		return fault.Config(err)
	}
	store, err := state.Open(dbPath)
	if err != nil {
		return fault.Config(err)
	}
	defer store.Close()

	srv, err := server.New(server.Options{
		MaxClients: cfg.MaxClients,
		Defaults: server.Settings{
			Volume:   cfg.Volume,
			Shuffle:  cfg.Shuffle,
			Repeat:   cfg.Repeat,
			AutoNext: cfg.AutoNext,
		},
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return fault.Config(err)
	}

	listener, err := server.Init(endpoint)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return fault.Launch(ipc.ErrAlreadyRunning)
		}
		return fault.Launch(err)
	}

	if parsed.ReadyFD > 0 {
		if err := r.signalReady(parsed.ReadyFD); err != nil {
			_ = listener.Close()
			return fault.Launch(err)
		}
	}

	stopReaper := reaper.Start(ctx, logger)
	defer stopReaper()

	if err := srv.Loop(ctx, listener); err != nil {
		return fault.Launch(err)
	}
	return nil
}

func (r Runner) signalReady(fd int) error {
	open := r.openReadyFD
	if open == nil {
		open = func(fd int) *os.File { return os.NewFile(uintptr(fd), "ready") }
	}
	f := open(fd)
	if f == nil {
		return fmt.Errorf("readiness descriptor %d is not open", fd)
	}
	defer f.Close()
	if _, err := f.Stat(); err != nil {
		return fmt.Errorf("readiness descriptor %d is not open: %w", fd, err)
	}

	if err := protocol.WriteInt(f, readySentinel); err != nil {
		return fmt.Errorf("signal readiness: %w", err)
	}
	return nil
}

func (r Runner) launcher(parsed cli.Parsed, endpoint string, logger *slog.Logger) *launcher.Launcher {
	spawner := r.Spawner
	if spawner == nil {
		spawner = launcher.ExecSpawner{Args: parsed.ServerArgs()}
	}
	return &launcher.Launcher{
		Endpoint: endpoint,
		Spawner:  spawner,
		Stdout:   r.Stdout,
		Logger:   logger,
	}
}

func classifyLaunch(err error) error {
	if errors.Is(err, ipc.ErrNotRunning) {
		return fault.Connection(err)
	}
	return fault.Launch(err)
}
