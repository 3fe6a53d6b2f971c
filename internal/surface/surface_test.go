package surface

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ficreader/narrator/internal/chapter"
	"github.com/ficreader/narrator/internal/playback"
	"github.com/ficreader/narrator/internal/voice"
)

// recordingSpeaker completes every utterance immediately.
type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []playback.Utterance
}

func (r *recordingSpeaker) Speak(u playback.Utterance) <-chan error {
	r.mu.Lock()
	r.spoken = append(r.spoken, u)
	r.mu.Unlock()
	ch := make(chan error, 1)
	ch <- nil
	return ch
}

func (r *recordingSpeaker) Cancel() {}

func (r *recordingSpeaker) utterances() []playback.Utterance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]playback.Utterance(nil), r.spoken...)
}

// blockingSpeaker holds every utterance until cancelled.
type blockingSpeaker struct {
	mu      sync.Mutex
	pending chan error
	started chan struct{}
}

func newBlockingSpeaker() *blockingSpeaker {
	return &blockingSpeaker{started: make(chan struct{}, 10)}
}

func (b *blockingSpeaker) Speak(playback.Utterance) <-chan error {
	ch := make(chan error, 1)
	b.mu.Lock()
	b.pending = ch
	b.mu.Unlock()
	b.started <- struct{}{}
	return ch
}

func (b *blockingSpeaker) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending != nil {
		b.pending <- errors.New("cancelled")
		b.pending = nil
	}
}

var sample = chapter.Chapter{
	ID:    "C000000001",
	Title: "Prologue",
	HTML:  `<div><p>He said, "Hello." She left.</p></div>`,
}

func options() Options {
	return Options{
		Preferences: voice.DefaultPreferences(),
		Playback:    []playback.Option{playback.WithPacing(0, 0)},
		Logger:      log.New(os.Stderr),
	}
}

func TestMountBuildsScriptOnce(t *testing.T) {
	src := voice.NewList()
	s := Mount(sample, &recordingSpeaker{}, src, options())
	defer s.Unmount()

	if s.Title() != "Prologue" {
		t.Errorf("Expected title Prologue, got %q", s.Title())
	}
	if got := len(s.Chunks()); got != 4 {
		t.Errorf("Expected 4 chunks, got %d", got)
	}
	if s.State().Total != 4 {
		t.Errorf("Expected total 4, got %d", s.State().Total)
	}
}

func TestSurfaceReadsWithRankedVoices(t *testing.T) {
	src := voice.NewList(
		voice.Descriptor{Name: "Standard", Lang: "en-GB"},
		voice.Descriptor{Name: "Natural US", Lang: "en-US", Default: true, Local: true},
	)
	sp := &recordingSpeaker{}
	s := Mount(sample, sp, src, options())
	defer s.Unmount()

	if err := s.Toggle(); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	s.Wait()

	us := sp.utterances()
	if len(us) != 4 {
		t.Fatalf("Expected 4 utterances, got %d", len(us))
	}
	if us[0].Voice == nil || us[0].Voice.Name != "Natural US" {
		t.Errorf("Expected heading in Natural US, got %v", us[0].Voice)
	}
	if us[2].Voice == nil || us[2].Voice.Name != "Standard" {
		t.Errorf("Expected dialog in Standard, got %v", us[2].Voice)
	}
}

func TestSurfaceVoiceListArrivesLate(t *testing.T) {
	src := voice.NewList()
	sp := &recordingSpeaker{}
	s := Mount(sample, sp, src, options())
	defer s.Unmount()

	if len(s.Voices()) != 0 {
		t.Fatal("Expected no voices yet")
	}

	src.Set([]voice.Descriptor{{Name: "Late", Lang: "en-CA"}})
	if got := s.Voices(); len(got) != 1 || got[0].Name != "Late" {
		t.Errorf("Expected the late voice, got %v", got)
	}
}

func TestUnmountStopsAndUnsubscribes(t *testing.T) {
	src := voice.NewList()
	sp := newBlockingSpeaker()
	s := Mount(sample, sp, src, options())

	if src.Subscribers() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", src.Subscribers())
	}

	if err := s.Toggle(); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	select {
	case <-sp.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the first utterance")
	}

	s.Unmount()
	s.Unmount()

	if s.IsPlaying() {
		t.Error("Expected not playing after unmount")
	}
	if src.Subscribers() != 0 {
		t.Errorf("Expected 0 subscribers after unmount, got %d", src.Subscribers())
	}
	if err := s.Toggle(); !errors.Is(err, playback.ErrClosed) {
		t.Errorf("Expected ErrClosed after unmount, got %v", err)
	}
}

func TestMountWithoutSpeaker(t *testing.T) {
	s := Mount(sample, nil, voice.NewList(), options())
	defer s.Unmount()

	if s.Available() {
		t.Error("Expected surface without speaker to be unavailable")
	}
	if err := s.Toggle(); !errors.Is(err, playback.ErrNoSpeaker) {
		t.Errorf("Expected ErrNoSpeaker, got %v", err)
	}
}

func TestSurfaceOnChange(t *testing.T) {
	sp := &recordingSpeaker{}
	s := Mount(sample, sp, voice.NewList(), options())
	defer s.Unmount()

	var mu sync.Mutex
	var last playback.State
	s.OnChange(func(st playback.State) {
		mu.Lock()
		last = st
		mu.Unlock()
	})

	_ = s.Toggle()
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last.Status != playback.StatusIdle || last.Cursor != 4 {
		t.Errorf("Expected final idle state at cursor 4, got %+v", last)
	}
}
