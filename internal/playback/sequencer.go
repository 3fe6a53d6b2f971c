// Package playback reads a script aloud through a host speech service, one
// utterance at a time.
package playback

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ficreader/narrator/internal/script"
	"github.com/ficreader/narrator/internal/voice"
)

// Pacing delays inserted after block-final chunks.
const (
	DefaultHeadingPause = 500 * time.Millisecond
	DefaultBlockPause   = 250 * time.Millisecond
)

// DefaultLanguage is the language tag attached to every utterance unless
// configured otherwise.
const DefaultLanguage = "en-US"

// drainTimeout bounds how long a cancelled session waits for the host to
// acknowledge the aborted utterance.
const drainTimeout = 2 * time.Second

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLanguage sets the language tag of every utterance.
func WithLanguage(tag string) Option {
	return func(s *Sequencer) {
		if tag != "" {
			s.lang = tag
		}
	}
}

// WithBaseRate sets the rate the per-kind multipliers apply to.
func WithBaseRate(rate float64) Option {
	return func(s *Sequencer) {
		if rate > 0 {
			s.baseRate = rate
		}
	}
}

// WithBaseVolume sets the volume the per-kind multipliers apply to. Zero
// is silence.
func WithBaseVolume(volume float64) Option {
	return func(s *Sequencer) {
		if volume >= 0 {
			s.baseVolume = volume
		}
	}
}

// WithPacing sets the pauses after a heading and after any other
// block-final chunk. Zero disables the pause.
func WithPacing(heading, block time.Duration) Option {
	return func(s *Sequencer) {
		s.headingPause = max(heading, 0)
		s.blockPause = max(block, 0)
	}
}

// Sequencer walks a script, submitting one utterance at a time and waiting
// for each to finish before the next. A toggle starts reading from the
// first chunk; a second toggle stops it. There is no resume.
type Sequencer struct {
	speaker Speaker
	voices  Voices
	chunks  script.Script
	logger  *log.Logger

	lang         string
	baseRate     float64
	baseVolume   float64
	headingPause time.Duration
	blockPause   time.Duration

	// pause sleeps for d or until ctx is done.
	pause func(ctx context.Context, d time.Duration) error

	mu          sync.Mutex
	state       State
	cancel      context.CancelFunc
	done        chan struct{}
	listeners   []func(State)
	pending     []State // changes not yet passed to listeners
	dispatching bool
	closed      bool
}

// New creates a Sequencer for chunks. A nil speaker yields a sequencer that
// is not Available and ignores Toggle.
func New(speaker Speaker, voices Voices, chunks script.Script, opts ...Option) *Sequencer {
	s := &Sequencer{
		speaker:      speaker,
		voices:       voices,
		chunks:       chunks,
		logger:       log.Default().WithPrefix("playback"),
		lang:         DefaultLanguage,
		baseRate:     1,
		baseVolume:   1,
		headingPause: DefaultHeadingPause,
		blockPause:   DefaultBlockPause,
		pause:        sleep,
		state:        State{Status: StatusIdle, Total: len(chunks)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a host speech service is present.
func (s *Sequencer) Available() bool {
	return s.speaker != nil
}

// State returns a snapshot of the sequencer.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsPlaying reports whether a session is active.
func (s *Sequencer) IsPlaying() bool {
	return s.State().IsPlaying()
}

// OnChange registers fn to be called after every state change. Callbacks
// run in the order the changes happened, outside the sequencer lock, and
// possibly on a goroutine other than the one that made the change. They may
// call State, IsPlaying and Toggle but must not call Close.
func (s *Sequencer) OnChange(fn func(State)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Toggle starts reading when idle and stops reading when playing.
func (s *Sequencer) Toggle() error {
	if s.speaker == nil {
		s.logger.Warn("No speech service available, ignoring toggle")
		return ErrNoSpeaker
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	if s.state.Status == StatusPlaying {
		s.emitAndUnlock(s.stopLocked()...)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	prev := s.done
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.state = State{Status: StatusPlaying, Cursor: 0, Total: len(s.chunks)}
	id := uuid.NewString()
	s.emitAndUnlock(s.state)

	s.logger.Debug("Starting session", "session", id, "chunks", len(s.chunks))
	go s.run(ctx, s.logger.With("session", id), prev, done)
	return nil
}

// Wait blocks until the current session's loop has exited.
func (s *Sequencer) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Close stops any session and waits for its loop to exit. Further toggles
// return ErrClosed.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	var changes []State
	if s.state.Status == StatusPlaying {
		changes = s.stopLocked()
	}
	s.emitAndUnlock(changes...)
	s.Wait()
}

// stopLocked cancels the active session and returns the states passed
// through. Must be called with s.mu held.
func (s *Sequencer) stopLocked() []State {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.speaker.Cancel()

	s.state.Status = StatusCancelled
	cancelled := s.state
	s.state.Status = StatusIdle
	return []State{cancelled, s.state}
}

func (s *Sequencer) run(ctx context.Context, logger *log.Logger, prev <-chan struct{}, done chan struct{}) {
	defer close(done)

	// The previous session has been cancelled; let it finish draining so
	// the host never sees two utterances from this sequencer at once.
	if prev != nil {
		<-prev
	}

	for i, c := range s.chunks {
		result, ok := s.submit(ctx, i, s.utterance(c))
		if !ok {
			return
		}

		select {
		case err := <-result:
			if err != nil {
				logger.Warn("Utterance failed", "chunk", i, "kind", c.Kind, "error", err)
			}
		case <-ctx.Done():
			s.drain(result, logger)
			return
		}

		if d := s.pacing(c); d > 0 {
			if err := s.pause(ctx, d); err != nil {
				return
			}
		}
	}

	s.finish(ctx, logger)
}

// submit hands u to the speaker unless the session has been cancelled. The
// check and the submission happen under the lock Toggle takes, so once a
// toggle off returns no further utterance is submitted.
func (s *Sequencer) submit(ctx context.Context, cursor int, u Utterance) (<-chan error, bool) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return nil, false
	}
	s.state.Cursor = cursor
	result := s.speaker.Speak(u)
	s.emitAndUnlock(s.state)
	return result, true
}

func (s *Sequencer) drain(result <-chan error, logger *log.Logger) {
	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()

	select {
	case <-result:
	case <-timer.C:
		logger.Warn("Speech service did not acknowledge cancellation", "timeout", drainTimeout)
	}
}

func (s *Sequencer) finish(ctx context.Context, logger *log.Logger) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state.Status = StatusIdle
	s.state.Cursor = len(s.chunks)
	s.emitAndUnlock(s.state)

	logger.Debug("Session finished", "chunks", len(s.chunks))
}

// utterance builds the request for c: the preferred voice for headings
// and narration, the secondary voice for dialog.
func (s *Sequencer) utterance(c script.Chunk) Utterance {
	u := Utterance{
		Text:   c.Text,
		Lang:   s.lang,
		Voice:  s.pickVoice(c.Kind),
		Rate:   s.baseRate,
		Volume: s.baseVolume,
	}

	switch c.Kind {
	case script.KindHeading:
		u.Rate *= 0.75
		u.Volume *= 1.125
	case script.KindDialog:
		u.Rate *= 1.125
	}
	return u
}

func (s *Sequencer) pickVoice(k script.Kind) *voice.Descriptor {
	if s.voices == nil {
		return nil
	}
	ranked := s.voices.Ranked()
	switch {
	case len(ranked) == 0:
		return nil
	case k == script.KindDialog && len(ranked) > 1:
		v := ranked[1]
		return &v
	default:
		v := ranked[0]
		return &v
	}
}

func (s *Sequencer) pacing(c script.Chunk) time.Duration {
	switch {
	case !c.BreaksAfter:
		return 0
	case c.Kind == script.KindHeading:
		return s.headingPause
	default:
		return s.blockPause
	}
}

// emitAndUnlock queues states for the listeners and releases s.mu. It must
// be called with s.mu held. The first caller to find no delivery in
// progress delivers until the queue is empty; later callers return at once.
func (s *Sequencer) emitAndUnlock(states ...State) {
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, states...)
	if s.dispatching {
		s.mu.Unlock()
		return
	}

	s.dispatching = true
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		listeners := slices.Clone(s.listeners)
		s.mu.Unlock()

		for _, st := range batch {
			for _, fn := range listeners {
				fn(st)
			}
		}
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
