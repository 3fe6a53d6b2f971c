// Package ui provides the terminal reading surface for narrator.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/ficreader/narrator/internal/playback"
	"github.com/ficreader/narrator/internal/script"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied"
	ellipsis             = "…"
	minWrapWidth         = 20
)

// Reader is the mounted chapter the UI controls.
type Reader interface {
	Title() string
	Chunks() script.Script
	State() playback.State
	Available() bool
	Toggle() error
	Unmount()
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, r Reader) *tea.Program {
	log.Debug("Starting narrator TUI", "width", cfg.Width, "tick", cfg.Tick)
	return tea.NewProgram(newModel(cfg, r), tea.WithAltScreen())
}

type (
	tickMsg                 struct{}
	statusMessageTimeoutMsg struct{}
)

type model struct {
	cfg     Config
	reader  Reader
	chunks  script.Script
	state   playback.State
	spinner spinner.Model
	width   int

	statusMessage      string
	statusIsError      bool
	statusMessageTimer *time.Timer

	copy func(string) error
}

func newModel(cfg Config, r Reader) model {
	if cfg.Tick <= 0 {
		cfg.Tick = 250 * time.Millisecond
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = progressStyle

	return model{
		cfg:     cfg,
		reader:  r,
		chunks:  r.Chunks(),
		state:   r.State(),
		spinner: sp,
		copy:    copyToClipboard,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.state = m.reader.State()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusIsError = false

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.statusMessageTimer != nil {
				m.statusMessageTimer.Stop()
			}
			m.reader.Unmount()
			return m, tea.Quit

		case " ", "enter":
			if !m.reader.Available() {
				return m, m.showStatusMessage("No speech service available", true)
			}
			if err := m.reader.Toggle(); err != nil {
				log.Debug("toggle failed", "error", err)
				return m, m.showStatusMessage(err.Error(), true)
			}
			m.state = m.reader.State()

		case "c":
			text := m.current().Text
			if text == "" {
				return m, nil
			}
			if err := m.copy(text); err != nil {
				log.Debug("clipboard write failed", "error", err)
			}
			return m, m.showStatusMessage("Copied chunk", false)
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	width := m.wrapWidth()

	b.WriteString(titleStyle.Render(truncate.StringWithTail(m.reader.Title(), uint(width), ellipsis)))
	b.WriteString("\n\n")

	b.WriteString(m.control())
	b.WriteString("  ")
	if m.state.IsPlaying() {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(progressStyle.Render(fmt.Sprintf("%d/%d", m.state.Cursor, m.state.Total)))
	b.WriteString("\n\n")

	if c := m.current(); c.Text != "" {
		text := wordwrap.String(c.Text, width)
		if c.Kind == script.KindDialog {
			text = dialogStyle.Render(text)
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("space: read/stop • c: copy • q: quit"))
	if m.statusMessage != "" {
		style := statusStyle
		if m.statusIsError {
			style = errorStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.statusMessage))
	}
	return b.String()
}

// control renders the single activation control.
func (m model) control() string {
	switch {
	case !m.reader.Available():
		return disabledControlStyle.Render("Read aloud (unavailable)")
	case m.state.IsPlaying():
		return activeControlStyle.Render("■ Stop")
	default:
		return controlStyle.Render("▶ Read aloud")
	}
}

// current returns the chunk under the cursor, or the zero chunk once the
// script has been read to the end.
func (m model) current() script.Chunk {
	if m.state.Cursor < 0 || m.state.Cursor >= len(m.chunks) {
		return script.Chunk{}
	}
	return m.chunks[m.state.Cursor]
}

func (m model) wrapWidth() int {
	w := m.cfg.Width
	if m.width > 0 && m.width-2 < w {
		w = m.width - 2
	}
	return max(w, minWrapWidth)
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.cfg.Tick, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusMessage = msg
	m.statusIsError = isError
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

func copyToClipboard(text string) error {
	// Copy using OSC 52
	termenv.Copy(text)
	// Copy using native system clipboard
	return clipboard.WriteAll(text)
}
