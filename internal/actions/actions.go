// Package actions holds the user-requested intents parsed from the command line.
package actions

// JumpUnit selects how a jump target is interpreted.
type JumpUnit byte

const (
	JumpNone    JumpUnit = 0
	JumpPercent JumpUnit = '%'
	JumpSeconds JumpUnit = 's'
)

// Terminal is the single sequence-ending action of a one-shot dispatch.
type Terminal int

const (
	TerminalNone Terminal = iota
	TerminalQuit
	TerminalStop
	TerminalPause
	TerminalNext
	TerminalPrevious
	TerminalUnpause
	TerminalTogglePause
)

func (t Terminal) String() string {
	switch t {
	case TerminalQuit:
		return "quit"
	case TerminalStop:
		return "stop"
	case TerminalPause:
		return "pause"
	case TerminalNext:
		return "next"
	case TerminalPrevious:
		return "previous"
	case TerminalUnpause:
		return "unpause"
	case TerminalTogglePause:
		return "toggle-pause"
	default:
		return "none"
	}
}

// Requested is built once by option parsing and only read afterwards.
// Fields are independent; Terminal and the dispatcher impose ordering.
type Requested struct {
	PlayIt    bool
	Clear     bool
	Append    bool
	Enqueue   bool
	PlayFirst bool
	FileInfo  bool

	// SeekBy is a relative offset in seconds; zero means no seek.
	SeekBy int

	JumpUnit JumpUnit
	JumpTo   int

	// Format is non-nil when formatted info was requested.
	Format *string

	// Volume is nil when no mixer change was requested.
	Volume *VolumeChange

	Toggle []Control
	On     []Control
	Off    []Control

	Exit        bool
	Stop        bool
	Pause       bool
	Next        bool
	Previous    bool
	Unpause     bool
	TogglePause bool

	// Files are the positional arguments used by PlayIt, Append and Enqueue.
	Files []string
}

// Terminal selects the terminal action; earlier entries win when several are set.
func (r *Requested) Terminal() Terminal {
	switch {
	case r.Exit:
		return TerminalQuit
	case r.Stop:
		return TerminalStop
	case r.Pause:
		return TerminalPause
	case r.Next:
		return TerminalNext
	case r.Previous:
		return TerminalPrevious
	case r.Unpause:
		return TerminalUnpause
	case r.TogglePause:
		return TerminalTogglePause
	default:
		return TerminalNone
	}
}

// PlaylistOnly reports whether every requested action builds or starts the
// playlist, which are the actions that may precede an interactive session.
func (r *Requested) PlaylistOnly() bool {
	if !r.Any() {
		return false
	}
	return !r.FileInfo && r.SeekBy == 0 && r.JumpUnit == JumpNone &&
		r.Format == nil && r.Volume == nil &&
		len(r.Toggle) == 0 && len(r.On) == 0 && len(r.Off) == 0 &&
		r.Terminal() == TerminalNone
}

// Any reports whether at least one action was requested.
func (r *Requested) Any() bool {
	return r.PlayIt || r.Clear || r.Append || r.Enqueue || r.PlayFirst ||
		r.FileInfo || r.SeekBy != 0 || r.JumpUnit != JumpNone ||
		r.Format != nil || r.Volume != nil ||
		len(r.Toggle) > 0 || len(r.On) > 0 || len(r.Off) > 0 ||
		r.Terminal() != TerminalNone
}
