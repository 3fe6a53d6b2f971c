// Package surface ties one chapter to one read-aloud session for as long as
// the chapter is on screen.
package surface

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/ficreader/narrator/internal/chapter"
	"github.com/ficreader/narrator/internal/playback"
	"github.com/ficreader/narrator/internal/script"
	"github.com/ficreader/narrator/internal/voice"
)

// Options configure a mounted surface.
type Options struct {
	Preferences voice.Preferences
	Playback    []playback.Option
	Logger      *log.Logger
}

// Surface is one mounted reading surface. The chapter is segmented once at
// Mount; voices are ranked lazily as the host's voice list changes.
type Surface struct {
	title  string
	chunks script.Script
	ranker *voice.Ranker
	seq    *playback.Sequencer
	logger *log.Logger

	once sync.Once
}

// Mount builds the script for ch and prepares playback through speaker.
// A nil speaker mounts a surface whose control is unavailable.
func Mount(ch chapter.Chapter, speaker playback.Speaker, src voice.Source, opts Options) *Surface {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("surface")
	}

	chunks := script.Build(ch.Title, ch.HTML)
	ranker := voice.NewRanker(src, opts.Preferences)

	popts := append([]playback.Option{playback.WithLogger(logger.WithPrefix("playback"))}, opts.Playback...)
	s := &Surface{
		title:  chunks[0].Text,
		chunks: chunks,
		ranker: ranker,
		seq:    playback.New(speaker, ranker, chunks, popts...),
		logger: logger,
	}

	logger.Debug("Mounted", "title", s.title, "chunks", len(chunks), "available", s.seq.Available())
	return s
}

// Title returns the heading read first.
func (s *Surface) Title() string {
	return s.title
}

// Chunks returns the script. It must not be modified.
func (s *Surface) Chunks() script.Script {
	return s.chunks
}

// Voices returns the host voices best first.
func (s *Surface) Voices() []voice.Descriptor {
	return s.ranker.Ranked()
}

// Toggle starts or stops reading aloud.
func (s *Surface) Toggle() error {
	return s.seq.Toggle()
}

// IsPlaying reports whether the chapter is being read.
func (s *Surface) IsPlaying() bool {
	return s.seq.IsPlaying()
}

// Available reports whether a speech service is present.
func (s *Surface) Available() bool {
	return s.seq.Available()
}

// State returns the playback state.
func (s *Surface) State() playback.State {
	return s.seq.State()
}

// OnChange registers fn for playback state changes. fn may read the state
// or toggle playback but must not call Unmount.
func (s *Surface) OnChange(fn func(playback.State)) {
	s.seq.OnChange(fn)
}

// Wait blocks until the current reading session has ended.
func (s *Surface) Wait() {
	s.seq.Wait()
}

// Unmount stops reading and releases the voice subscription. It is safe to
// call more than once.
func (s *Surface) Unmount() {
	s.once.Do(func() {
		s.seq.Close()
		s.ranker.Close()
		s.logger.Debug("Unmounted", "title", s.title)
	})
}
