// Package ui is an interactive harness for the narration engine: it lists
// the focusable elements of a screen and maps keys to the actions a voter
// would take with a keypad.
package ui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/dgnsrekt/narrator/pkg/audio"
	"github.com/dgnsrekt/narrator/pkg/narration"
	"github.com/dgnsrekt/narrator/pkg/settings"
)

const ellipsis = "…"

// Narrator is the part of the narration session the harness drives.
type Narrator interface {
	Focus(id narration.NodeID) error
	Activate(id narration.NodeID) error
	Replay() error
	SetLanguage(code string) error
	Language() string
	State() (narration.State, narration.NodeID)
	Published() []audio.ClipReference
}

// Controls is the part of the settings context bound to keys.
type Controls interface {
	State() settings.State
	ToggleEnabled()
	TogglePaused()
	IncreaseVolume()
	DecreaseVolume()
	IncreaseRate()
	DecreaseRate()
	Reset()
	SetControlsLocked(locked bool)
	SetDevicePresent(present bool)
}

// Screen lists what can be focused.
type Screen interface {
	Focusable() []narration.NodeID
	Label(id narration.NodeID) string
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, narrator Narrator, controls Controls, screen Screen) *tea.Program {
	log.Debug("Starting harness", "title", cfg.Title, "languages", cfg.Languages)

	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, narrator, controls, screen), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type refreshMsg time.Time

type model struct {
	cfg      Config
	narrator Narrator
	controls Controls
	screen   Screen

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	focus  int
	status statusDisplay
	width  int
	notice string
	err    error
}

func newModel(cfg Config, narrator Narrator, controls Controls, screen Screen) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = focusStyle

	h := help.New()
	h.ShowAll = false

	m := model{
		cfg:      cfg,
		narrator: narrator,
		controls: controls,
		screen:   screen,
		keys:     defaultKeyMap(),
		help:     h,
		spinner:  sp,
		focus:    -1,
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m model) tick() tea.Cmd {
	interval := m.cfg.RefreshInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// refresh copies the engine state into the status display.
func (m *model) refresh() {
	state, target := m.narrator.State()
	m.status = statusDisplay{
		settings: m.controls.State(),
		state:    state,
		target:   target,
		queue:    m.narrator.Published(),
		language: m.narrator.Language(),
	}
}

// run calls a session method off the update loop and reports its error.
func run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m model) focused() (narration.NodeID, bool) {
	ids := m.screen.Focusable()
	if m.focus < 0 || m.focus >= len(ids) {
		return "", false
	}
	return ids[m.focus], true
}

// moveFocus steps the focus and narrates the new element.
func (m *model) moveFocus(delta int) tea.Cmd {
	ids := m.screen.Focusable()
	if len(ids) == 0 {
		return nil
	}
	switch {
	case m.focus < 0 && delta < 0:
		m.focus = len(ids) - 1
	case m.focus < 0:
		m.focus = 0
	default:
		m.focus = (m.focus + delta + len(ids)) % len(ids)
	}
	id := ids[m.focus]
	return run(func() error { return m.narrator.Focus(id) })
}

// nextLanguage is the language after the current one in the configured
// list.
func (m model) nextLanguage() (string, bool) {
	if len(m.cfg.Languages) < 2 {
		return "", false
	}
	current := m.narrator.Language()
	for i, lang := range m.cfg.Languages {
		if strings.EqualFold(lang, current) {
			return m.cfg.Languages[(i+1)%len(m.cfg.Languages)], true
		}
	}
	return m.cfg.Languages[0], true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case errMsg:
		log.Warn("Narration action failed", "error", msg.err)
		m.err = msg.err
		return m, nil

	case refreshMsg:
		m.refresh()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	m.notice = ""

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Next):
		cmd = m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		cmd = m.moveFocus(-1)
	case key.Matches(msg, m.keys.Activate):
		if id, ok := m.focused(); ok {
			cmd = run(func() error { return m.narrator.Activate(id) })
		}
	case key.Matches(msg, m.keys.Replay):
		cmd = run(m.narrator.Replay)
	case key.Matches(msg, m.keys.Language):
		if lang, ok := m.nextLanguage(); ok {
			cmd = run(func() error { return m.narrator.SetLanguage(lang) })
		}
	case key.Matches(msg, m.keys.VolumeUp):
		m.controls.IncreaseVolume()
	case key.Matches(msg, m.keys.VolumeDown):
		m.controls.DecreaseVolume()
	case key.Matches(msg, m.keys.RateUp):
		m.controls.IncreaseRate()
	case key.Matches(msg, m.keys.RateDown):
		m.controls.DecreaseRate()
	case key.Matches(msg, m.keys.Pause):
		m.controls.TogglePaused()
	case key.Matches(msg, m.keys.Enable):
		m.controls.ToggleEnabled()
	case key.Matches(msg, m.keys.Reset):
		m.controls.Reset()
	case key.Matches(msg, m.keys.Lock):
		m.controls.SetControlsLocked(!m.controls.State().ControlsLocked)
	case key.Matches(msg, m.keys.Headphones):
		m.controls.SetDevicePresent(!m.controls.State().DevicePresent)
	case key.Matches(msg, m.keys.Copy):
		m.copyQueue()
	}
	m.refresh()
	return m, cmd
}

// copyQueue puts the published clips, one language/id per line, on the
// clipboard.
func (m *model) copyQueue() {
	refs := m.narrator.Published()
	if len(refs) == 0 {
		m.notice = "Nothing to copy"
		return
	}
	lines := make([]string, len(refs))
	for i, ref := range refs {
		lines[i] = ref.LanguageCode + "/" + ref.ClipID
	}
	text := strings.Join(lines, "\n")

	// Copy using OSC 52
	termenv.Copy(text)
	// Copy using native system clipboard
	_ = clipboard.WriteAll(text)
	m.notice = "Copied queue"
}

func (m model) View() string {
	var b strings.Builder

	title := m.cfg.Title
	if title == "" {
		title = "narrator"
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	ids := m.screen.Focusable()
	if len(ids) == 0 {
		b.WriteString(subtleStyle.Render("  nothing to focus") + "\n")
	}
	for i, id := range ids {
		label := m.screen.Label(id)
		switch {
		case i == m.focus && id == m.status.target && m.status.state == narration.StateResolving:
			b.WriteString(m.spinner.View() + " " + focusStyle.Render(label))
		case i == m.focus:
			b.WriteString(focusStyle.Render("› " + label))
		case id == m.status.target:
			b.WriteString("• " + label)
		default:
			b.WriteString("  " + label)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + m.status.Compact() + "\n")
	b.WriteString(m.status.Queue(m.width) + "\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.status.Error(m.err, m.width)) + "\n")
	}
	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice) + "\n")
	}
	if m.cfg.ShowHelp {
		b.WriteString("\n" + m.help.View(m.keys))
	}
	return b.String()
}
