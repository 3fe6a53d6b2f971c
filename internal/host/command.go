package host

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ficreader/narrator/internal/playback"
)

// BaseWPM is the speaking rate, in words per minute, of an utterance with
// rate 1.
const BaseWPM = 175

// waitDelay bounds how long a killed synthesizer may hold its output open.
const waitDelay = time.Second

// CommandSpeaker speaks each utterance by running a synthesizer process.
// Text is passed on stdin so it never reaches the argument list.
type CommandSpeaker struct {
	flavor Flavor
	binary string
	logger *log.Logger
	build  func(playback.Utterance) ([]string, string)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandSpeaker creates a speaker for flavor. The synthesizer must be
// installed.
func NewCommandSpeaker(flavor Flavor) (*CommandSpeaker, error) {
	binary, err := exec.LookPath(string(flavor))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoSynthesizer, flavor, err)
	}
	return &CommandSpeaker{
		flavor: flavor,
		binary: binary,
		logger: log.Default().WithPrefix("host"),
		build:  func(u playback.Utterance) ([]string, string) { return Command(flavor, u) },
	}, nil
}

// Flavor returns the synthesizer dialect.
func (s *CommandSpeaker) Flavor() Flavor {
	return s.flavor
}

// Speak implements playback.Speaker. A new utterance starts only once the
// previous process has exited.
func (s *CommandSpeaker) Speak(u playback.Utterance) <-chan error {
	result := make(chan error, 1)
	args, input := s.build(u)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	s.mu.Lock()
	prev := s.done
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			result <- ErrCancelled
			return
		}

		s.logger.Debug("Speaking", "voice", voiceName(u), "rate", u.Rate, "chars", len(u.Text))
		err := cmd.Run()
		switch {
		case ctx.Err() != nil:
			result <- ErrCancelled
		case err != nil && stderr.Len() > 0:
			result <- fmt.Errorf("%s failed: %w\nstderr: %s", s.flavor, err, strings.TrimSpace(stderr.String()))
		case err != nil:
			result <- fmt.Errorf("%s failed: %w", s.flavor, err)
		default:
			result <- nil
		}
	}()

	return result
}

// Cancel implements playback.Speaker by killing the running process.
func (s *CommandSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Command returns the synthesizer arguments and stdin text for u.
func Command(flavor Flavor, u playback.Utterance) ([]string, string) {
	wpm := strconv.Itoa(int(math.Round(BaseWPM * rateOrOne(u.Rate))))

	switch flavor {
	case FlavorSay:
		args := []string{"-r", wpm}
		if u.Voice != nil && u.Voice.Name != "" {
			args = append(args, "-v", u.Voice.Name)
		}
		args = append(args, "-f", "-")

		input := u.Text
		if vol := clamp(u.Volume, 0, 1); vol != 1 {
			input = fmt.Sprintf("[[volm %.2f]] %s", vol, u.Text)
		}
		return args, input
	default:
		v := strings.ToLower(strings.ReplaceAll(u.Lang, "_", "-"))
		if u.Voice != nil && u.Voice.Name != "" {
			v = u.Voice.Name
		}
		args := []string{"-s", wpm, "-a", strconv.Itoa(int(math.Round(100 * clamp(u.Volume, 0, 2))))}
		if v != "" {
			args = append(args, "-v", v)
		}
		args = append(args, "--stdin")
		return args, u.Text
	}
}

func voiceName(u playback.Utterance) string {
	if u.Voice == nil {
		return "default"
	}
	return u.Voice.Name
}

func rateOrOne(r float64) float64 {
	if r <= 0 {
		return 1
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
