package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxpad/history"
)

// Messages from the flow controller
type RecordingStartMsg struct{}
type RecordingStopMsg struct{}
type PauseMsg struct{ Paused bool }
type LevelMsg struct{ Level float64 }
type ProgressMsg struct{ Text string }
type JobIdleMsg struct{}
type NoteReadyMsg struct {
	Entry   history.Entry
	Metrics []string
	History []history.Entry
}
type ActionDoneMsg struct{ Action, Text string }
type ActionIdleMsg struct{}
type ShareDoneMsg struct{ Message string }
type HistoryMsg struct{ Entries []history.Entry }
type FlowErrMsg struct {
	Stage string
	Err   error
}
type tickMsg time.Time

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiSend(msg any) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

type keyMap struct {
	Record   key.Binding
	Pause    key.Binding
	Cancel   key.Binding
	Rephrase key.Binding
	Formal   key.Binding
	Shorten  key.Binding
	Share    key.Binding
	Up       key.Binding
	Down     key.Binding
	Load     key.Binding
	Delete   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Pause, k.Rephrase, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Record, k.Pause, k.Cancel},
		{k.Rephrase, k.Formal, k.Shorten, k.Share},
		{k.Up, k.Down, k.Load, k.Delete},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Record: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "record/send"),
	),
	Pause: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "pause/resume"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Rephrase: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rephrase"),
	),
	Formal: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "formalize"),
	),
	Shorten: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "shorten"),
	),
	Share: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "share"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Load: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open note"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "delete note"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

type tuiModel struct {
	flow *Flow

	recording bool
	paused    bool
	busy      bool // upload or poll in flight
	action    bool // text action in flight
	frame     int
	duration  float64
	wave      waveform

	title   string
	buffer  string
	metrics []string
	noteNum int

	progress string
	errText  string
	status   string

	entries []history.Entry
	cursor  int

	sharing    bool
	shareInput textinput.Model

	keys keyMap
	help help.Model

	width, height int
	headerLine    string
}

func newTUIModel(flow *Flow, server, format string, entries []history.Entry) tuiModel {
	ti := textinput.New()
	ti.Placeholder = "email address"
	ti.CharLimit = 128
	ti.Width = 40

	return tuiModel{
		flow:       flow,
		entries:    entries,
		shareInput: ti,
		keys:       keys,
		help:       help.New(),
		headerLine: fmt.Sprintf("voxpad %s  [%s | %s]", version, format, server),
	}
}

func NewTUIProgram(flow *Flow, server, format string, entries []history.Entry) *tea.Program {
	m := newTUIModel(flow, server, format, entries)
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.frame++
		if m.recording && !m.paused {
			m.duration = m.flow.Duration()
		}
		return m, tuiTick()

	case RecordingStartMsg:
		m.recording = true
		m.paused = false
		m.duration = 0
		m.errText = ""
		m.status = ""
		m.wave.Reset()

	case RecordingStopMsg:
		m.recording = false
		m.paused = false

	case PauseMsg:
		m.paused = msg.Paused

	case LevelMsg:
		if m.recording && !m.paused {
			m.wave.Push(msg.Level)
		}

	case ProgressMsg:
		m.busy = true
		m.progress = msg.Text

	case JobIdleMsg:
		m.busy = false
		m.progress = ""

	case NoteReadyMsg:
		m.noteNum++
		m.title = msg.Entry.Title
		m.buffer = msg.Entry.Text
		m.metrics = msg.Metrics
		m.entries = msg.History
		m.cursor = 0
		m.errText = ""
		m.status = "copied to clipboard"

	case ActionDoneMsg:
		m.buffer = msg.Text
		m.metrics = nil
		m.errText = ""
		m.status = msg.Action + " applied, copied to clipboard"

	case ActionIdleMsg:
		m.action = false

	case ShareDoneMsg:
		m.status = msg.Message

	case HistoryMsg:
		m.entries = msg.Entries
		if m.cursor >= len(m.entries) && m.cursor > 0 {
			m.cursor = len(m.entries) - 1
		}

	case FlowErrMsg:
		m.errText = msg.Err.Error()
		m.status = ""
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sharing {
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.sharing = false
			m.shareInput.Blur()
			return m, nil
		case msg.Type == tea.KeyEnter:
			recipient := strings.TrimSpace(m.shareInput.Value())
			m.sharing = false
			m.shareInput.Blur()
			if recipient != "" {
				m.status = "sharing…"
				m.flow.ShareNote(m.buffer, recipient, "email")
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.shareInput, cmd = m.shareInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Record):
		if m.recording || m.paused {
			m.flow.FinishAndSend()
		} else if !m.busy {
			m.flow.StartRecording()
		}

	case key.Matches(msg, m.keys.Pause):
		m.flow.TogglePause()

	case key.Matches(msg, m.keys.Cancel):
		switch {
		case m.recording || m.paused:
			m.flow.AbortRecording()
		case m.busy:
			m.flow.CancelJob()
		default:
			m.errText = ""
			m.status = ""
		}

	case key.Matches(msg, m.keys.Rephrase):
		m = m.applyAction("rephrase")

	case key.Matches(msg, m.keys.Formal):
		m = m.applyAction("formal")

	case key.Matches(msg, m.keys.Shorten):
		m = m.applyAction("shorten")

	case key.Matches(msg, m.keys.Share):
		if m.buffer != "" && !m.recording {
			m.sharing = true
			m.shareInput.SetValue("")
			m.shareInput.Focus()
			return m, textinput.Blink
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Load):
		if m.cursor < len(m.entries) {
			e := m.entries[m.cursor]
			m.title = e.Title
			m.buffer = e.Text
			m.metrics = nil
			m.status = ""
		}

	case key.Matches(msg, m.keys.Delete):
		if m.cursor < len(m.entries) {
			m.flow.RemoveEntry(m.entries[m.cursor].ID)
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// applyAction fires a text action unless one is already in flight. The
// buffer itself only changes when the result message arrives.
func (m tuiModel) applyAction(action string) tuiModel {
	if m.buffer == "" || m.action || m.recording {
		return m
	}
	m.action = true
	m.status = action + "…"
	m.flow.ApplyAction(m.buffer, action, "")
	return m
}

var (
	statusRecStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusIdleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	bufferStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	metricsStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	histStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	histSelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(m.headerLine) + "\n\n")

	switch {
	case m.recording && m.paused:
		b.WriteString(statusIdleStyle.Render(fmt.Sprintf("‖ PAUSED %.1fs", m.duration)) + "\n")
		b.WriteString(m.wave.Render(true) + "\n")
	case m.recording:
		b.WriteString(statusRecStyle.Render(fmt.Sprintf("● REC %.1fs", m.duration)) + "\n")
		b.WriteString(m.wave.Render(false) + "\n")
	case m.busy:
		b.WriteString(statusIdleStyle.Render(spinnerFrame(m.frame)+" "+m.progress) + "\n")
		b.WriteString(m.wave.Render(true) + "\n")
	default:
		b.WriteString(statusIdleStyle.Render("○ ready") + "\n")
		b.WriteString(m.wave.Render(true) + "\n")
	}
	b.WriteString("\n")

	wrapWidth := m.width - 2
	if wrapWidth > 76 {
		wrapWidth = 76
	}
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	if m.buffer != "" {
		title := m.title
		if title == "" {
			title = fmt.Sprintf("Note #%d", m.noteNum)
		}
		b.WriteString(titleStyle.Render(title) + "\n")
		for _, line := range wrapText(m.buffer, wrapWidth) {
			b.WriteString(bufferStyle.Render(line) + "\n")
		}
		for _, line := range m.metrics {
			b.WriteString(metricsStyle.Render(line) + "\n")
		}
	} else {
		b.WriteString(statusIdleStyle.Render("No notes yet — press space to record") + "\n")
	}
	b.WriteString("\n")

	if m.sharing {
		b.WriteString("Share with: " + m.shareInput.View() + "\n\n")
	}

	if m.errText != "" {
		b.WriteString(errStyle.Render("✗ "+m.errText) + "\n")
	} else if m.status != "" {
		b.WriteString(okStyle.Render("✓ "+m.status) + "\n")
	}
	b.WriteString("\n")

	if len(m.entries) > 0 {
		b.WriteString(titleStyle.Render(fmt.Sprintf("History (%d)", len(m.entries))) + "\n")
		for i, e := range m.entries {
			if i >= 8 {
				b.WriteString(histStyle.Render(fmt.Sprintf("  … %d more", len(m.entries)-i)) + "\n")
				break
			}
			line := noteLine(e, wrapWidth-4)
			if i == m.cursor {
				b.WriteString(histSelStyle.Render("▶ "+line) + "\n")
			} else {
				b.WriteString(histStyle.Render("  "+line) + "\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func spinnerFrame(frame int) string {
	chars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return chars[frame%len(chars)]
}

func noteLine(e history.Entry, width int) string {
	line := e.Title
	if line == "" {
		line = e.Text
	}
	// Truncate on rune boundaries; note text is not ASCII.
	runes := []rune(line)
	if len(runes) > width && width > 1 {
		line = string(runes[:width-1]) + "…"
	}
	return line
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	runes := []rune(text)
	var lines []string
	for len(runes) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if runes[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(runes[:splitAt]))
		runes = runes[splitAt:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	return lines
}
