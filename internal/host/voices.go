package host

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ficreader/narrator/internal/voice"
)

// ListVoices asks the synthesizer for its installed voices.
func ListVoices(ctx context.Context, flavor Flavor) ([]voice.Descriptor, error) {
	var args []string
	switch flavor {
	case FlavorEspeak:
		args = []string{"--voices"}
	case FlavorSay:
		args = []string{"-v", "?"}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlavor, flavor)
	}

	out, err := exec.CommandContext(ctx, string(flavor), args...).Output()
	if err != nil {
		return nil, fmt.Errorf("unable to list %s voices: %w", flavor, err)
	}
	return ParseVoices(flavor, bytes.NewReader(out))
}

// ParseVoices parses the voice listing printed by flavor.
func ParseVoices(flavor Flavor, r io.Reader) ([]voice.Descriptor, error) {
	switch flavor {
	case FlavorEspeak:
		return parseEspeakVoices(r)
	case FlavorSay:
		return parseSayVoices(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlavor, flavor)
	}
}

// parseEspeakVoices reads the table printed by espeak-ng --voices:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 2  en-us           --/M      English_(America)  gmw/en-US     (en 3)
//
// The file column is the identifier espeak-ng accepts for -v.
func parseEspeakVoices(r io.Reader) ([]voice.Descriptor, error) {
	var voices []voice.Descriptor
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, voice.Descriptor{
			Name:  fields[4],
			Lang:  fields[1],
			Local: true,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("unable to read voice list: %w", err)
	}
	return voices, nil
}

// parseSayVoices reads the listing printed by say -v '?':
//
//	Alex                en_US    # Most people recognize me by my voice.
//	Eddy (English (US)) en_US    # Hello! My name is Eddy.
func parseSayVoices(r io.Reader) ([]voice.Descriptor, error) {
	var voices []voice.Descriptor
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		lang := fields[len(fields)-1]
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), lang))
		voices = append(voices, voice.Descriptor{
			Name:  name,
			Lang:  lang,
			Local: true,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("unable to read voice list: %w", err)
	}
	return voices, nil
}
