package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rekam/app"
	"rekam/beep"
	"rekam/capture"
	"rekam/entries"
	"rekam/log"
)

// TUI message types
type SnapshotMsg struct{}
type RecordingTickMsg struct{ Elapsed int }
type AlertMsg struct{ Text string }
type CopiedMsg struct{ URL string }
type tickMsg time.Time

type tuiFocus int

const (
	focusName tuiFocus = iota
	focusAddress
	focusEntries
	focusCount
)

type tuiModel struct {
	app     *app.App
	apiBase string

	snap          app.Snapshot
	focus         tuiFocus
	cursor        int
	alerts        []string // blocking notifications, oldest first
	copied        string
	frame         int
	width, height int
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	inputStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	focusedStyle  = inputStyle.BorderForeground(lipgloss.Color("39"))
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	clipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("24"))
	alertStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208")).Padding(1, 3)
)

func NewTUIProgram(a *app.App, apiBase string) *tea.Program {
	m := tuiModel{app: a, apiBase: apiBase, snap: a.Snapshot()}
	return tea.NewProgram(m, tea.WithAltScreen())
}

// tuiSink forwards app events to the program in order without ever blocking
// the caller; Update may itself trigger events.
type tuiSink struct {
	out chan tea.Msg
}

func newTUISink(p *tea.Program) *tuiSink {
	s := &tuiSink{out: make(chan tea.Msg, 256)}
	go func() {
		for msg := range s.out {
			p.Send(msg)
		}
	}()
	return s
}

func (s *tuiSink) push(msg tea.Msg) {
	select {
	case s.out <- msg:
	default:
		log.Warn("tui event queue full, dropping event")
	}
}

func (s *tuiSink) Changed(app.Snapshot) { s.push(SnapshotMsg{}) }
func (s *tuiSink) Tick(elapsed int)     { s.push(RecordingTickMsg{Elapsed: elapsed}) }
func (s *tuiSink) Alert(text string)    { s.push(AlertMsg{Text: text}) }

func tuiTick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) toggleRecording() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		a.ToggleRecording(context.Background())
		return nil
	}
}

func (m tuiModel) submit() tea.Cmd {
	a := m.app
	return func() tea.Msg {
		a.SubmitForm(context.Background())
		return nil
	}
}

func copyURL(url string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(url); err != nil {
			return AlertMsg{Text: "Could not copy link: " + err.Error()}
		}
		return CopiedMsg{URL: url}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.frame++
		cmd = tuiTick()

	case SnapshotMsg, RecordingTickMsg:

	case AlertMsg:
		m.alerts = append(m.alerts, msg.Text)
		if msg.Text != app.MsgSubmitted {
			beep.Play(beep.Error)
		}

	case CopiedMsg:
		m.copied = msg.URL

	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}

	prev := m.snap.State
	m.snap = m.app.Snapshot()
	switch {
	case prev != capture.Capturing && m.snap.State == capture.Capturing:
		beep.Play(beep.Start)
	case prev == capture.Capturing && m.snap.State != capture.Capturing:
		beep.Play(beep.End)
	}
	if n := len(m.snap.Entries); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	return m, cmd
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if key == "ctrl+c" {
		return tea.Quit
	}

	// an alert must be acknowledged before anything else
	if len(m.alerts) > 0 {
		switch key {
		case "enter", "esc", " ":
			m.alerts = m.alerts[1:]
		}
		return nil
	}

	switch key {
	case "tab", "down":
		if key == "down" && m.focus == focusEntries {
			if m.cursor < len(m.snap.Entries)-1 {
				m.cursor++
			}
			return nil
		}
		m.focus = (m.focus + 1) % focusCount
		return nil
	case "shift+tab", "up":
		if key == "up" && m.focus == focusEntries && m.cursor > 0 {
			m.cursor--
			return nil
		}
		m.focus = (m.focus + focusCount - 1) % focusCount
		return nil
	case "ctrl+r":
		return m.toggleRecording()
	case "ctrl+s":
		return m.submit()
	case "enter", "ctrl+y":
		if m.focus == focusEntries {
			if m.cursor < len(m.snap.Entries) {
				return copyURL(m.snap.Entries[m.cursor].AudioURL)
			}
			return nil
		}
		if key == "enter" {
			m.focus++
		}
		return nil
	}

	switch m.focus {
	case focusName:
		if v, ok := edit(m.snap.Name, msg); ok {
			m.app.SetName(v)
		}
	case focusAddress:
		if v, ok := edit(m.snap.Address, msg); ok {
			m.app.SetAddress(v)
		}
	}
	return nil
}

// edit applies a key press to a single-line field.
func edit(v string, msg tea.KeyMsg) (string, bool) {
	switch msg.Type {
	case tea.KeyRunes:
		return v + string(msg.Runes), true
	case tea.KeySpace:
		return v + " ", true
	case tea.KeyBackspace:
		r := []rune(v)
		if len(r) == 0 {
			return v, false
		}
		return string(r[:len(r)-1]), true
	case tea.KeyCtrlU:
		return "", v != ""
	}
	return v, false
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if len(m.alerts) > 0 {
		box := alertStyle.Render(m.alerts[0] + "\n\n" + dimStyle.Render("enter to dismiss"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	formWidth := min(max(m.width/2, 30), m.width-2)
	var b strings.Builder

	b.WriteString(titleStyle.Render("Form Data") + "\n\n")
	b.WriteString(m.field("Name", m.snap.Name, focusName, formWidth))
	b.WriteString(m.field("Address", m.snap.Address, focusAddress, formWidth))

	elapsed := capture.FormatElapsed(m.snap.Elapsed)
	if m.snap.State == capture.Capturing {
		dot := "●"
		if m.frame%2 == 1 {
			dot = " "
		}
		b.WriteString(recStyle.Render(dot+" REC "+elapsed) + "\n")
	} else {
		b.WriteString(idleStyle.Render("○ "+elapsed) + "\n")
	}
	if c := m.snap.Clip; c != nil {
		b.WriteString(clipStyle.Render(fmt.Sprintf("clip ready: %s, %.1f KB, %s", c.MediaType, float64(c.Size)/1024, capture.FormatElapsed(c.Elapsed))) + "\n")
	} else {
		b.WriteString(dimStyle.Render("no clip recorded") + "\n")
	}
	if m.snap.Submitting {
		b.WriteString(labelStyle.Render("submitting...") + "\n")
	}

	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Entries (%d)", len(m.snap.Entries))) + "\n")
	if len(m.snap.Entries) == 0 {
		b.WriteString(dimStyle.Render("  no entries") + "\n")
	}
	for i, e := range m.entryWindow() {
		idx := i + m.entryOffset()
		line := fmt.Sprintf("  %s, %s  %s", e.Name, e.Address, e.AudioURL)
		if r := []rune(line); len(r) > m.width-1 && m.width > 4 {
			line = string(r[:m.width-4]) + "..."
		}
		if m.focus == focusEntries && idx == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.copied != "" {
		b.WriteString(clipStyle.Render("[✓ copied] "+m.copied) + "\n")
	}

	b.WriteString("\n")
	help := dimStyle.Render("tab") + labelStyle.Render(" next field  ") +
		dimStyle.Render("ctrl+r") + labelStyle.Render(" record/stop  ") +
		dimStyle.Render("ctrl+s") + labelStyle.Render(" submit  ") +
		dimStyle.Render("enter") + labelStyle.Render(" copy link  ") +
		dimStyle.Render("ctrl+c") + labelStyle.Render(" quit")
	b.WriteString(help + "\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("rekam %s | %s | %s", version, m.snap.Recorder, m.apiBase)))
	return b.String()
}

func (m tuiModel) field(label, value string, f tuiFocus, width int) string {
	style := inputStyle
	if m.focus == f {
		style = focusedStyle
		value += "▏"
	}
	return labelStyle.Render(label) + "\n" + style.Width(width).Render(value) + "\n"
}

// entry list rows that fit below the form
func (m tuiModel) entryRows() int {
	return max(m.height-20, 3)
}

func (m tuiModel) entryOffset() int {
	rows := m.entryRows()
	if m.cursor < rows {
		return 0
	}
	return m.cursor - rows + 1
}

func (m tuiModel) entryWindow() []entries.Entry {
	off := m.entryOffset()
	end := min(off+m.entryRows(), len(m.snap.Entries))
	return m.snap.Entries[off:end]
}
