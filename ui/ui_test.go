package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ficreader/narrator/internal/playback"
	"github.com/ficreader/narrator/internal/script"
)

type fakeReader struct {
	mu        sync.Mutex
	chunks    script.Script
	state     playback.State
	available bool
	toggleErr error
	toggles   int
	unmounts  int
}

func newFakeReader(available bool) *fakeReader {
	chunks := script.Build("Prologue", `<p>He said, "Hello." She left.</p>`)
	return &fakeReader{
		chunks:    chunks,
		state:     playback.State{Total: len(chunks)},
		available: available,
	}
}

func (f *fakeReader) Title() string { return f.chunks[0].Text }
func (f *fakeReader) Chunks() script.Script { return f.chunks }
func (f *fakeReader) Available() bool { return f.available }
func (f *fakeReader) State() playback.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeReader) Toggle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toggleErr != nil {
		return f.toggleErr
	}
	f.toggles++
	if f.state.IsPlaying() {
		f.state.Status = playback.StatusIdle
	} else {
		f.state.Status = playback.StatusPlaying
		f.state.Cursor = 0
	}
	return nil
}

func (f *fakeReader) Unmount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmounts++
}

func (f *fakeReader) set(st playback.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Expected model, got %T", next)
	}
	return nm, cmd
}

func TestToggleKeys(t *testing.T) {
	for _, key := range []string{" ", "enter"} {
		t.Run(key, func(t *testing.T) {
			r := newFakeReader(true)
			m := newModel(Config{Width: 80}, r)

			m, _ = update(t, m, keyMsg(key))
			if r.toggles != 1 {
				t.Errorf("Expected 1 toggle, got %d", r.toggles)
			}
			if !m.state.IsPlaying() {
				t.Error("Expected model to show playing after toggle")
			}
			if !strings.Contains(m.View(), "Stop") {
				t.Error("Expected the control to offer Stop while playing")
			}

			m, _ = update(t, m, keyMsg(key))
			if r.toggles != 2 {
				t.Errorf("Expected 2 toggles, got %d", r.toggles)
			}
			if m.state.IsPlaying() {
				t.Error("Expected model to show idle after second toggle")
			}
		})
	}
}

func TestToggleUnavailable(t *testing.T) {
	r := newFakeReader(false)
	m := newModel(Config{Width: 80}, r)

	m, cmd := update(t, m, keyMsg(" "))
	if r.toggles != 0 {
		t.Errorf("Expected no toggle without a speech service, got %d", r.toggles)
	}
	if cmd == nil {
		t.Error("Expected a status message timeout command")
	}
	view := m.View()
	if !strings.Contains(view, "unavailable") {
		t.Error("Expected the control to render disabled")
	}
	if !strings.Contains(view, "No speech service available") {
		t.Error("Expected status message in view")
	}
}

func TestToggleError(t *testing.T) {
	r := newFakeReader(true)
	r.toggleErr = errors.New("surface closed")
	m := newModel(Config{Width: 80}, r)

	m, _ = update(t, m, keyMsg("enter"))
	if m.statusMessage != "surface closed" || !m.statusIsError {
		t.Errorf("Expected error status message, got %q (error=%v)", m.statusMessage, m.statusIsError)
	}
}

func TestTickPollsState(t *testing.T) {
	r := newFakeReader(true)
	m := newModel(Config{Width: 80}, r)

	r.set(playback.State{Status: playback.StatusPlaying, Cursor: 2, Total: len(r.chunks)})
	m, cmd := update(t, m, tickMsg{})
	if cmd == nil {
		t.Error("Expected the tick to be rescheduled")
	}
	if m.state.Cursor != 2 || !m.state.IsPlaying() {
		t.Errorf("Expected polled state, got %+v", m.state)
	}

	view := m.View()
	if !strings.Contains(view, "2/4") {
		t.Errorf("Expected progress 2/4 in view, got:\n%s", view)
	}
	if !strings.Contains(view, "Hello.") {
		t.Errorf("Expected current dialog chunk in view, got:\n%s", view)
	}
}

func TestFinishedShowsNoChunk(t *testing.T) {
	r := newFakeReader(true)
	m := newModel(Config{Width: 80}, r)

	r.set(playback.State{Status: playback.StatusIdle, Cursor: 4, Total: 4})
	m, _ = update(t, m, tickMsg{})
	if got := m.current(); got.Text != "" {
		t.Errorf("Expected no current chunk at the end, got %q", got.Text)
	}
	if !strings.Contains(m.View(), "4/4") {
		t.Error("Expected progress 4/4 in view")
	}
}

func TestCopyCurrentChunk(t *testing.T) {
	r := newFakeReader(true)
	m := newModel(Config{Width: 80}, r)

	var copied []string
	m.copy = func(s string) error {
		copied = append(copied, s)
		return nil
	}

	r.set(playback.State{Status: playback.StatusPlaying, Cursor: 1, Total: 4})
	m, _ = update(t, m, tickMsg{})
	m, _ = update(t, m, keyMsg("c"))

	if len(copied) != 1 || copied[0] != "He said, " {
		t.Errorf("Expected the narration chunk to be copied, got %q", copied)
	}
	if m.statusMessage != "Copied chunk" {
		t.Errorf("Expected status message, got %q", m.statusMessage)
	}
}

func TestQuitUnmounts(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			r := newFakeReader(true)
			m := newModel(Config{Width: 80}, r)

			_, cmd := update(t, m, keyMsg(key))
			if r.unmounts != 1 {
				t.Errorf("Expected 1 unmount, got %d", r.unmounts)
			}
			if cmd == nil {
				t.Fatal("Expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("Expected tea.QuitMsg")
			}
		})
	}
}

func TestStatusMessageTimeout(t *testing.T) {
	m := newModel(Config{Width: 80}, newFakeReader(true))
	m.statusMessage = "Copied chunk"

	m, _ = update(t, m, statusMessageTimeoutMsg{})
	if m.statusMessage != "" {
		t.Errorf("Expected status message cleared, got %q", m.statusMessage)
	}
}

func TestWrapWidth(t *testing.T) {
	tests := []struct {
		name     string
		cfgWidth int
		termW    int
		want     int
	}{
		{"config width", 80, 0, 80},
		{"narrow terminal", 80, 50, 48},
		{"wide terminal", 60, 200, 60},
		{"minimum", 80, 10, minWrapWidth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModel(Config{Width: tt.cfgWidth}, newFakeReader(true))
			m, _ = update(t, m, tea.WindowSizeMsg{Width: tt.termW, Height: 24})
			if got := m.wrapWidth(); got != tt.want {
				t.Errorf("Expected width %d, got %d", tt.want, got)
			}
		})
	}
}
