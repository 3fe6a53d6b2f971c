package main

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ficreader/narrator/internal/config"
	"github.com/ficreader/narrator/internal/host"
	"github.com/ficreader/narrator/internal/playback"
	"github.com/ficreader/narrator/internal/voice"
	"github.com/ficreader/narrator/utils"
)

// voiceListTimeout bounds how long the synthesizer may take to list voices.
const voiceListTimeout = 5 * time.Second

// newSpeaker returns the speech service selected by cfg. When no
// synthesizer is available it logs why and returns a nil speaker, which
// mounts the surface with its control disabled.
func newSpeaker(cfg config.Config) (playback.Speaker, host.Flavor) {
	if cfg.Host.DryRun {
		return host.NewLogSpeaker(log.WithPrefix("dry-run")), ""
	}

	flavor, err := selectFlavor(cfg.Host.Command)
	if err != nil {
		log.Warn("Speech is unavailable", "error", err)
		return nil, ""
	}
	s, err := host.NewCommandSpeaker(flavor)
	if err != nil {
		log.Warn("Speech is unavailable", "error", err)
		return nil, ""
	}
	log.Debug("Using synthesizer", "flavor", flavor)
	return s, flavor
}

func selectFlavor(name string) (host.Flavor, error) {
	if name == "" {
		return host.DetectFlavor()
	}
	return host.ParseFlavor(name)
}

// newVoiceSource lists the synthesizer voices and layers the configured
// catalog on top. The catalog file is watched for edits.
func newVoiceSource(ctx context.Context, cfg config.Config, flavor host.Flavor) (*host.Catalog, error) {
	listed := listVoices(ctx, flavor)

	path := cfg.Voice.Catalog
	if path != "" {
		path = utils.ExpandPath(path)
	}
	c, err := host.NewCatalog(listed, path)
	if err != nil {
		return nil, err
	}
	if err := c.Watch(); err != nil {
		log.Warn("Unable to watch voice catalog", "path", c.Path(), "error", err)
	}
	return c, nil
}

// listVoices returns the synthesizer voices, or none when there is no
// synthesizer or listing fails.
func listVoices(ctx context.Context, flavor host.Flavor) []voice.Descriptor {
	if flavor == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, voiceListTimeout)
	defer cancel()

	voices, err := host.ListVoices(ctx, flavor)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("Unable to list voices", "flavor", flavor, "error", err)
		}
		return nil
	}
	return voices
}
