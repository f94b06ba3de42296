// Package cli parses the command line into an immutable Parsed value.
package cli

import (
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/rbright/cadence/internal/actions"
	"github.com/rbright/cadence/internal/version"
)

const summary = "[OPTIONS] [FILE|DIR ...]"

// Parsed is the whole command line. It is built once and never mutated.
type Parsed struct {
	ShowHelp    bool
	ShowUsage   bool
	ShowVersion bool
	Doctor      bool

	ConfigPath string
	ControlDir string
	Overrides  []string
	Debug      bool

	Server     bool
	Foreground bool
	// ReadyFD is set only in a re-executed server child.
	ReadyFD int

	// Interface runs playlist actions on the interactive Session instead of
	// as one-shot commands.
	Interface bool

	Actions actions.Requested
}

// OneShot reports whether the invocation is a command dispatch against an
// already running server, with no launch and no interface.
func (p Parsed) OneShot() bool {
	return !p.Interface && !p.Server && p.Actions.Any()
}

// ServerArgs are the flags a re-executed server child needs to resolve the
// same config, control directory and log level as this process.
func (p Parsed) ServerArgs() []string {
	var args []string
	if p.ConfigPath != "" {
		args = append(args, "--config", p.ConfigPath)
	}
	if p.ControlDir != "" {
		args = append(args, "--control-dir", p.ControlDir)
	}
	for _, o := range p.Overrides {
		args = append(args, "--set-option", o)
	}
	if p.Debug {
		args = append(args, "--debug")
	}
	return args
}

// raw holds flag values that need conversion after parsing.
type raw struct {
	jump   string
	volume string
	toggle string
	on     string
	off    string
	format string
}

func newFlagSet(p *Parsed, r *raw) *flag.FlagSet {
	fs := flag.NewFlagSet(version.Name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.SortFlags = false

	a := &p.Actions

	fs.StringVarP(&p.ConfigPath, "config", "C", "", "Use the specified config `FILE` instead of the default")
	fs.StringArrayVarP(&p.Overrides, "set-option", "O", nil, "Override the config option NAME with VALUE ('NAME=VALUE')")
	fs.StringVarP(&p.ControlDir, "control-dir", "M", "", "Use the specified control `DIR` instead of the default")
	fs.BoolVarP(&p.Debug, "debug", "D", false, "Log at debug level")
	fs.BoolVarP(&p.Server, "server", "S", false, "Only run the server")
	fs.BoolVarP(&p.Foreground, "foreground", "F", false, "Run the server in foreground (logging to stdout)")
	fs.BoolVarP(&p.Interface, "interface", "I", false, "Run -c, -a, -q, -p and -l inside the interface")
	fs.BoolVar(&p.Doctor, "doctor", false, "Check configuration, control directory and server")
	fs.IntVar(&p.ReadyFD, "ready-fd", 0, "")

	fs.BoolVarP(&a.Append, "append", "a", false, "Append the files/directories passed in the command line to playlist")
	fs.BoolVarP(&a.Append, "recursively", "e", false, "Same as --append")
	fs.BoolVarP(&a.Enqueue, "enqueue", "q", false, "Add the files given on command line to the queue")
	fs.BoolVarP(&a.Clear, "clear", "c", false, "Clear the playlist")
	fs.BoolVarP(&a.PlayFirst, "play", "p", false, "Start playing from the first item on the playlist")
	fs.BoolVarP(&a.PlayIt, "playit", "l", false, "Play files given on command line without modifying the playlist")
	fs.BoolVarP(&a.Exit, "exit", "x", false, "Shutdown the server")
	fs.BoolVarP(&a.Stop, "stop", "s", false, "Stop playing")
	fs.BoolVarP(&a.Pause, "pause", "P", false, "Pause")
	fs.BoolVarP(&a.Unpause, "unpause", "U", false, "Unpause")
	fs.BoolVarP(&a.TogglePause, "toggle-pause", "G", false, "Toggle between playing and paused")
	fs.BoolVarP(&a.Next, "next", "f", false, "Play the next song")
	fs.BoolVarP(&a.Previous, "previous", "r", false, "Play the previous song")
	fs.BoolVarP(&a.FileInfo, "info", "i", false, "Print information about the file currently playing")
	fs.StringVarP(&r.format, "format", "Q", "", "Print formatted information about the file currently playing")
	fs.IntVarP(&a.SeekBy, "seek", "k", 0, "Seek by `N` seconds (can be negative)")
	fs.StringVarP(&r.jump, "jump", "j", "", "Jump to some position in the current track (N{%,s})")
	fs.StringVarP(&r.volume, "volume", "v", "", "Adjust the volume ([+,-]LEVEL)")
	fs.StringVarP(&r.toggle, "toggle", "t", "", "Toggle a `CONTROL` (shuffle, autonext, repeat)")
	fs.StringVarP(&r.on, "on", "o", "", "Turn on a `CONTROL` (shuffle, autonext, repeat)")
	fs.StringVarP(&r.off, "off", "u", "", "Turn off a `CONTROL` (shuffle, autonext, repeat)")

	fs.BoolVarP(&p.ShowVersion, "version", "V", false, "Print version information")
	fs.BoolVarP(&p.ShowHelp, "help", "h", false, "Print extended usage")
	fs.BoolVar(&p.ShowUsage, "usage", false, "Print brief usage")

	_ = fs.MarkHidden("ready-fd")
	return fs
}

// Parse reads args (without the program name). Every error is a usage error.
func Parse(args []string) (Parsed, error) {
	var p Parsed
	var r raw
	fs := newFlagSet(&p, &r)

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}
	if p.ShowHelp || p.ShowUsage || p.ShowVersion {
		return p, nil
	}

	a := &p.Actions
	a.Files = fs.Args()

	if fs.Changed("format") {
		format := r.format
		a.Format = &format
	}
	if fs.Changed("jump") {
		to, unit, err := actions.ParseJump(r.jump)
		if err != nil {
			return Parsed{}, err
		}
		a.JumpTo, a.JumpUnit = to, unit
	}
	if fs.Changed("volume") {
		change, err := actions.ParseVolume(r.volume)
		if err != nil {
			return Parsed{}, err
		}
		a.Volume = &change
	}
	for _, c := range []struct {
		name  string
		value string
		dst   *[]actions.Control
	}{
		{"toggle", r.toggle, &a.Toggle},
		{"on", r.on, &a.On},
		{"off", r.off, &a.Off},
	} {
		if !fs.Changed(c.name) {
			continue
		}
		controls, err := actions.ParseControls(c.value)
		if err != nil {
			return Parsed{}, fmt.Errorf("--%s: %w", c.name, err)
		}
		*c.dst = controls
	}

	if err := p.validate(); err != nil {
		return Parsed{}, err
	}
	return p, nil
}

func (p *Parsed) validate() error {
	a := &p.Actions

	if p.Foreground {
		p.Server = true
	}
	if p.ReadyFD != 0 && (!p.Server || p.Foreground) {
		return errors.New("--ready-fd is only valid for a background server")
	}
	if p.ReadyFD < 0 {
		return errors.New("--ready-fd must be a descriptor number")
	}

	// Bare file arguments are appended inside the interface.
	if len(a.Files) > 0 && !a.Any() && !p.Server && !p.Doctor {
		a.Append = true
		p.Interface = true
	}

	if p.Server && (a.Any() || p.Interface) {
		return errors.New("one-shot and playlist options can't be used with --server")
	}
	if p.Interface && a.Any() && !a.PlaylistOnly() {
		return errors.New("only -c, -a, -q, -p and -l can be used with --interface")
	}
	if (a.PlayIt || a.Append || a.Enqueue) && len(a.Files) == 0 {
		return errors.New("-l, -a and -q need at least one FILE or DIR")
	}
	return nil
}

// HelpText is the extended usage printed by --help.
func HelpText() string {
	var p Parsed
	var r raw
	fs := newFlagSet(&p, &r)
	return fmt.Sprintf("%s\n\nUsage:\n  %s %s\n\nOptions:\n%s", version.Short(), version.Name, summary, fs.FlagUsages())
}

// UsageText is the brief usage printed by --usage and after usage errors.
func UsageText() string {
	return fmt.Sprintf("Usage: %s %s\nTry '%s --help' for more information.\n", version.Name, summary, version.Name)
}
