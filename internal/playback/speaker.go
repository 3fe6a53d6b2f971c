package playback

import "github.com/ficreader/narrator/internal/voice"

// Utterance is one span of text submitted to the host speech service.
type Utterance struct {
	Text   string
	Lang   string            // BCP 47 language tag
	Voice  *voice.Descriptor // nil selects the host default voice
	Rate   float64           // 1 is the host's normal speed
	Volume float64           // 1 is the host's normal volume
}

// Speaker is the host speech service.
type Speaker interface {
	// Speak submits u. The returned channel yields exactly one value: nil
	// when the utterance completed, or the error that ended it.
	Speak(u Utterance) <-chan error

	// Cancel aborts the utterance in progress, if any.
	Cancel()
}

// Voices provides the host voices best first.
type Voices interface {
	Ranked() []voice.Descriptor
}
