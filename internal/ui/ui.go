// Package ui is the interactive terminal interface. It drives one Session
// from the bubbletea update loop, so every request/reply pair stays on a
// single goroutine.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rbright/cadence/internal/actions"
	"github.com/rbright/cadence/internal/dispatch"
	"github.com/rbright/cadence/internal/ipc"
	"github.com/rbright/cadence/internal/protocol"
)

const (
	refreshInterval = time.Second
	volumeStep      = 5
	barWidth        = 30
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	artistStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	frameStyle  = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the interface state. It owns no connection; the caller closes
// the Session after Run returns.
type Model struct {
	conn ipc.Conn
	info dispatch.Info
	err  error
	// exit records how the user left: DISCONNECT or QUIT.
	exit protocol.Command
}

func New(conn ipc.Conn) Model {
	return Model{conn: conn}
}

// Err is the Session failure that ended the interface, if any.
func (m Model) Err() error { return m.err }

func (m Model) Info() dispatch.Info { return m.info }

// Exit is the command the user left with, zero while still running.
func (m Model) Exit() protocol.Command { return m.exit }

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m = m.refresh()
		if m.err != nil {
			return m, tea.Quit
		}
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error
	switch msg.String() {
	case "q", "ctrl+c":
		m.exit = protocol.CommandDisconnect
		m.err = m.conn.Send(protocol.CommandDisconnect)
		return m, tea.Quit
	case "Q":
		m.exit = protocol.CommandQuit
		m.err = m.conn.Send(protocol.CommandQuit)
		return m, tea.Quit
	case " ", "p":
		err = dispatch.TogglePause(m.conn)
	case "n":
		err = m.conn.Send(protocol.CommandNext)
	case "b":
		err = m.conn.Send(protocol.CommandPrev)
	case "s":
		err = m.conn.Send(protocol.CommandStop)
	case "+", "=":
		err = dispatch.AdjustVolume(m.conn, actions.VolumeChange{Relative: true, Level: volumeStep})
	case "-":
		err = dispatch.AdjustVolume(m.conn, actions.VolumeChange{Relative: true, Level: -volumeStep})
	default:
		return m, nil
	}

	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	m = m.refresh()
	if m.err != nil {
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) refresh() Model {
	info, err := dispatch.QueryInfo(m.conn)
	if err != nil {
		m.err = fmt.Errorf("refresh: %w", err)
		return m
	}
	m.info = info
	return m
}

func (m Model) View() string {
	var b strings.Builder

	if m.info.State == protocol.StateStop || m.info.File == "" {
		b.WriteString(dimStyle.Render("Stopped"))
	} else {
		title := m.info.Title
		if title == "" {
			title = m.info.File
		}
		b.WriteString(titleStyle.Render(title))
		if m.info.Artist != "" {
			b.WriteString("\n" + artistStyle.Render(m.info.Artist))
			if m.info.Album != "" {
				b.WriteString(dimStyle.Render(" - " + m.info.Album))
			}
		}
		b.WriteString("\n" + progress(m.info))
	}
	b.WriteString(fmt.Sprintf("\nVolume: %d%%", m.info.Volume))

	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()))
	}

	help := dimStyle.Render("space pause  n next  b prev  s stop  +/- volume  q detach  Q quit server")
	return frameStyle.Render(b.String()) + "\n" + help + "\n"
}

// progress renders "▶ 1:23 ▓▓▓░░░ 4:56".
func progress(info dispatch.Info) string {
	status := "▶"
	if info.State == protocol.StatePause {
		status = "⏸"
	}

	filled := 0
	if info.TotalSec > 0 {
		filled = min(barWidth*info.CurrentSec/info.TotalSec, barWidth)
	}
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %s %s %s", status, dispatch.FormatTime(info.CurrentSec), bar, dispatch.FormatTime(info.TotalSec))
}

// Run shows the interface until the user detaches or stops the server.
// It returns the Session failure that ended it, if any.
func Run(conn ipc.Conn, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(New(conn), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run interface: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
