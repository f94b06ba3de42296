package server

import (
	"slices"
	"time"

	"github.com/rbright/cadence/internal/actions"
	"github.com/rbright/cadence/internal/fsm"
	"github.com/rbright/cadence/internal/state"
)

// Settings are the player values restored from config or the state db.
type Settings struct {
	Volume   int
	Shuffle  bool
	Repeat   bool
	AutoNext bool
}

// Player is the in-memory playback model. It does not decode audio; the
// clock advances from wall time while playing. Callers serialize access.
type Player struct {
	now func() time.Time

	playlist []string
	cliList  []string
	queue    []string
	current  int
	file     string
	tags     Tags

	state     fsm.State
	startedAt time.Time
	offset    time.Duration

	volume  int
	options map[actions.Control]bool

	readTags func(string) Tags
}

func NewPlayer(settings Settings, now func() time.Time) *Player {
	if now == nil {
		now = time.Now
	}
	return &Player{
		now:     now,
		current: -1,
		state:   fsm.StateStopped,
		volume:  clampVolume(settings.Volume),
		options: map[actions.Control]bool{
			actions.ControlShuffle:  settings.Shuffle,
			actions.ControlRepeat:   settings.Repeat,
			actions.ControlAutoNext: settings.AutoNext,
		},
		readTags: ReadTags,
	}
}

// Restore replaces playlist and settings with a saved snapshot.
func (p *Player) Restore(snap state.Snapshot) {
	p.playlist = slices.Clone(snap.Playlist)
	p.current = -1
	if snap.CurrentIndex >= 0 && snap.CurrentIndex < len(p.playlist) {
		p.current = snap.CurrentIndex
	}
	p.volume = clampVolume(snap.Volume)
	p.options[actions.ControlShuffle] = snap.Shuffle
	p.options[actions.ControlRepeat] = snap.Repeat
	p.options[actions.ControlAutoNext] = snap.AutoNext
}

func (p *Player) Snapshot() state.Snapshot {
	return state.Snapshot{
		Playlist:     slices.Clone(p.playlist),
		CurrentIndex: p.current,
		Volume:       p.volume,
		Shuffle:      p.options[actions.ControlShuffle],
		Repeat:       p.options[actions.ControlRepeat],
		AutoNext:     p.options[actions.ControlAutoNext],
	}
}

func (p *Player) State() fsm.State { return p.state }

func (p *Player) File() string { return p.file }

func (p *Player) Tags() Tags { return p.tags }

func (p *Player) Playlist() []string { return slices.Clone(p.playlist) }

func (p *Player) ClearPlaylist() {
	p.playlist = nil
	p.current = -1
}

func (p *Player) AddToPlaylist(path string) { p.playlist = append(p.playlist, path) }

func (p *Player) ClearClientList() { p.cliList = nil }

func (p *Player) AddToClientList(path string) { p.cliList = append(p.cliList, path) }

func (p *Player) Enqueue(path string) { p.queue = append(p.queue, path) }

// Play starts file, or the first playlist entry when file is empty. A file
// from the client list replaces the playlist with that list.
func (p *Player) Play(file string) error {
	if file == "" {
		if len(p.playlist) == 0 {
			return nil
		}
		return p.start(0)
	}

	if slices.Contains(p.cliList, file) {
		p.playlist = slices.Clone(p.cliList)
	}
	if idx := slices.Index(p.playlist, file); idx >= 0 {
		return p.start(idx)
	}
	return p.startFile(-1, file)
}

func (p *Player) start(idx int) error {
	return p.startFile(idx, p.playlist[idx])
}

func (p *Player) startFile(idx int, file string) error {
	next, err := fsm.Transition(p.state, fsm.EventPlay)
	if err != nil {
		return err
	}
	p.current = idx
	p.file = file
	p.tags = p.readTags(file)
	p.offset = 0
	p.startedAt = p.now()
	p.state = next
	return nil
}

func (p *Player) Stop() error {
	return p.apply(fsm.EventStop)
}

func (p *Player) Pause() error {
	if p.state == fsm.StatePlaying {
		p.offset = p.elapsed()
	}
	return p.apply(fsm.EventPause)
}

func (p *Player) Unpause() error {
	if err := p.apply(fsm.EventUnpause); err != nil {
		return err
	}
	p.startedAt = p.now()
	return nil
}

func (p *Player) apply(event fsm.Event) error {
	next, err := fsm.Transition(p.state, event)
	if err != nil {
		return err
	}
	p.state = next
	if next == fsm.StateStopped {
		p.file = ""
		p.tags = Tags{}
		p.offset = 0
	}
	return nil
}

// Next plays the head of the queue, else the following playlist entry.
// Past the end it wraps with repeat on and stops otherwise.
func (p *Player) Next() error {
	if len(p.queue) > 0 {
		file := p.queue[0]
		p.queue = p.queue[1:]
		return p.restart(-1, file)
	}
	if len(p.playlist) == 0 {
		return nil
	}

	idx := p.current + 1
	if idx >= len(p.playlist) {
		if !p.options[actions.ControlRepeat] {
			return p.finish()
		}
		idx = 0
	}
	return p.restart(idx, p.playlist[idx])
}

func (p *Player) Prev() error {
	if len(p.playlist) == 0 {
		return nil
	}

	idx := p.current - 1
	if idx < 0 {
		if !p.options[actions.ControlRepeat] {
			idx = 0
		} else {
			idx = len(p.playlist) - 1
		}
	}
	return p.restart(idx, p.playlist[idx])
}

func (p *Player) restart(idx int, file string) error {
	if p.state == fsm.StatePaused {
		p.state = fsm.StatePlaying
	}
	return p.startFile(idx, file)
}

func (p *Player) finish() error {
	if p.state == fsm.StatePlaying {
		return p.apply(fsm.EventFinish)
	}
	return p.apply(fsm.EventStop)
}

func (p *Player) elapsed() time.Duration {
	if p.state != fsm.StatePlaying {
		return p.offset
	}
	return p.offset + p.now().Sub(p.startedAt)
}

// CurrentSec is the playback position in whole seconds.
func (p *Player) CurrentSec() int {
	if p.state == fsm.StateStopped {
		return 0
	}
	return int(p.elapsed() / time.Second)
}

// TotalSec is the track length, zero when unknown.
func (p *Player) TotalSec() int {
	return p.tags.TotalSec
}

func (p *Player) Seek(delta int) {
	p.JumpTo(p.CurrentSec() + delta)
}

func (p *Player) JumpTo(sec int) {
	if p.state == fsm.StateStopped {
		return
	}
	p.offset = time.Duration(max(sec, 0)) * time.Second
	p.startedAt = p.now()
}

// JumpPercent is ignored while the track length is unknown.
func (p *Player) JumpPercent(percent int) {
	if p.TotalSec() <= 0 {
		return
	}
	p.JumpTo(p.TotalSec() * min(max(percent, 0), 100) / 100)
}

func (p *Player) Volume() int { return p.volume }

func (p *Player) SetVolume(v int) { p.volume = clampVolume(v) }

// Option reports a control value; ok is false for unknown names.
func (p *Player) Option(name string) (on bool, ok bool) {
	on, ok = p.options[actions.Control(name)]
	return on, ok
}

func (p *Player) SetOption(name string, on bool) bool {
	control := actions.Control(name)
	if _, ok := p.options[control]; !ok {
		return false
	}
	p.options[control] = on
	return true
}

func clampVolume(v int) int {
	return min(max(v, 0), 100)
}
