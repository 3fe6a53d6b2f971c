package host

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"

	"github.com/ficreader/narrator/internal/playback"
)

// LogSpeaker is a dry-run speech service. It logs every utterance and
// completes it after the time a reader would need to speak it.
type LogSpeaker struct {
	logger *log.Logger

	// Delay scales the estimated speaking time. Zero completes utterances
	// immediately.
	Delay float64

	// Fail, if set, decides the completion error of each utterance.
	Fail func(playback.Utterance) error

	mu     sync.Mutex
	cancel context.CancelFunc
	spoken []playback.Utterance
}

// NewLogSpeaker creates a dry-run speaker that logs to l.
func NewLogSpeaker(l *log.Logger) *LogSpeaker {
	if l == nil {
		l = log.Default().WithPrefix("dry-run")
	}
	return &LogSpeaker{logger: l, Delay: 1}
}

// Speak implements playback.Speaker.
func (s *LogSpeaker) Speak(u playback.Utterance) <-chan error {
	result := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.cancel = cancel
	s.spoken = append(s.spoken, u)
	fail := s.Fail
	d := time.Duration(float64(EstimateDuration(u.Text, u.Rate)) * s.Delay)
	s.mu.Unlock()

	s.logger.Info(truncate.StringWithTail(u.Text, 60, "…"),
		"voice", voiceName(u), "rate", u.Rate, "volume", u.Volume, "lang", u.Lang)

	go func() {
		defer cancel()

		if d > 0 {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				result <- ErrCancelled
				return
			}
		} else if ctx.Err() != nil {
			result <- ErrCancelled
			return
		}

		if fail != nil {
			result <- fail(u)
			return
		}
		result <- nil
	}()

	return result
}

// Cancel implements playback.Speaker.
func (s *LogSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Spoken returns every utterance submitted so far.
func (s *LogSpeaker) Spoken() []playback.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]playback.Utterance(nil), s.spoken...)
}

// EstimateDuration estimates how long text takes to speak at rate, assuming
// about 150 words per minute at rate 1 and five characters per word.
func EstimateDuration(text string, rate float64) time.Duration {
	words := utf8.RuneCountInString(text) / 5
	if words < 1 {
		words = 1
	}
	seconds := float64(words) * 60.0 / 150.0 / rateOrOne(rate)
	return time.Duration(seconds * float64(time.Second))
}
