// Package host adapts local speech synthesizers to the playback engine.
package host

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// ErrUnknownFlavor is returned for unsupported synthesizer names.
	ErrUnknownFlavor = errors.New("unknown synthesizer")
	// ErrNoSynthesizer is returned when no supported synthesizer is installed.
	ErrNoSynthesizer = errors.New("no speech synthesizer found")
	// ErrCancelled is the completion of an utterance aborted by Cancel.
	ErrCancelled = errors.New("utterance cancelled")
)

// Flavor identifies a synthesizer command line dialect.
type Flavor string

const (
	// FlavorEspeak drives espeak-ng.
	FlavorEspeak Flavor = "espeak-ng"
	// FlavorSay drives the macOS say command.
	FlavorSay Flavor = "say"
)

// Flavors lists the supported synthesizers in detection order.
var Flavors = []Flavor{FlavorEspeak, FlavorSay}

// ParseFlavor validates a synthesizer name. "espeak" is accepted for
// espeak-ng.
func ParseFlavor(name string) (Flavor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "espeak-ng", "espeak":
		return FlavorEspeak, nil
	case "say":
		return FlavorSay, nil
	default:
		return "", fmt.Errorf("%w: %q (must be one of: espeak-ng, say)", ErrUnknownFlavor, name)
	}
}

// DetectFlavor returns the first supported synthesizer found in PATH.
func DetectFlavor() (Flavor, error) {
	for _, f := range Flavors {
		if _, err := exec.LookPath(string(f)); err == nil {
			return f, nil
		}
	}
	return "", ErrNoSynthesizer
}
