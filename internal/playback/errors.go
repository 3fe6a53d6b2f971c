package playback

import "errors"

var (
	// ErrNoSpeaker is returned when no host speech service is available.
	ErrNoSpeaker = errors.New("no speech service available")
	// ErrClosed is returned by operations on a closed sequencer.
	ErrClosed = errors.New("sequencer is closed")
)
