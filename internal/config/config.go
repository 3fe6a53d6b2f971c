// Package config holds the narrator configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"github.com/ficreader/narrator/internal/playback"
	"github.com/ficreader/narrator/internal/voice"
)

// Config contains all narrator configuration options.
type Config struct {
	// Language tag attached to every utterance
	Language string `yaml:"language"`

	Voice    VoiceConfig    `yaml:"voice"`
	Playback PlaybackConfig `yaml:"playback"`
	Host     HostConfig     `yaml:"host"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// VoiceConfig controls voice ranking.
type VoiceConfig struct {
	Family  string   `yaml:"family"`
	Regions []string `yaml:"regions"`
	Quality []string `yaml:"quality"`
	Catalog string   `yaml:"catalog"` // YAML file with extra voices
}

// PlaybackConfig controls utterance parameters and pacing.
type PlaybackConfig struct {
	Rate         float64       `yaml:"rate"`
	Volume       float64       `yaml:"volume"`
	HeadingPause time.Duration `yaml:"heading_pause"`
	BlockPause   time.Duration `yaml:"block_pause"`
}

// HostConfig selects the speech service.
type HostConfig struct {
	Command string `yaml:"command"` // espeak-ng or say; empty detects
	DryRun  bool   `yaml:"dry_run"`
}

// CacheConfig controls the cache of downloaded chapters.
type CacheConfig struct {
	Dir     string        `yaml:"dir"`      // empty uses the user cache dir
	MaxSize int           `yaml:"max_size"` // megabytes, 0 disables the cache
	MaxAge  time.Duration `yaml:"max_age"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	prefs := voice.DefaultPreferences()
	return Config{
		Language: playback.DefaultLanguage,
		Voice: VoiceConfig{
			Family:  prefs.Family,
			Regions: []string{prefs.Regions[0], prefs.Regions[1]},
			Quality: prefs.Quality,
		},
		Playback: PlaybackConfig{
			Rate:         1.0,
			Volume:       1.0,
			HeadingPause: playback.DefaultHeadingPause,
			BlockPause:   playback.DefaultBlockPause,
		},
		Cache: CacheConfig{
			MaxSize: 64,
			MaxAge:  24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := language.Parse(strings.ReplaceAll(c.Language, "_", "-")); err != nil {
		return fmt.Errorf("invalid language tag %q: %w", c.Language, err)
	}

	if _, err := language.ParseBase(c.Voice.Family); err != nil {
		return fmt.Errorf("invalid voice family %q: %w", c.Voice.Family, err)
	}
	if len(c.Voice.Regions) > 2 {
		return fmt.Errorf("at most 2 preferred regions are supported, got %d", len(c.Voice.Regions))
	}
	for _, r := range c.Voice.Regions {
		if _, err := language.ParseRegion(r); err != nil {
			return fmt.Errorf("invalid voice region %q: %w", r, err)
		}
	}

	if c.Playback.Rate < 0.1 || c.Playback.Rate > 4.0 {
		return fmt.Errorf("rate must be between 0.1 and 4.0, got %.2f", c.Playback.Rate)
	}
	if c.Playback.Volume < 0.0 || c.Playback.Volume > 2.0 {
		return fmt.Errorf("volume must be between 0.0 and 2.0, got %.2f", c.Playback.Volume)
	}
	if c.Playback.HeadingPause < 0 || c.Playback.BlockPause < 0 {
		return fmt.Errorf("pauses must not be negative")
	}

	switch strings.ToLower(c.Host.Command) {
	case "", "espeak", "espeak-ng", "say":
	default:
		return fmt.Errorf("invalid host command %q: must be one of [espeak-ng say]", c.Host.Command)
	}

	if c.Cache.MaxSize < 0 || c.Cache.MaxSize > 1024 {
		return fmt.Errorf("cache size must be between 0 and 1024 MB, got %d", c.Cache.MaxSize)
	}
	if c.Cache.MaxAge < 0 {
		return fmt.Errorf("cache max age must not be negative")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return nil
}

// Preferences returns the voice ranking preferences.
func (c *Config) Preferences() voice.Preferences {
	p := voice.Preferences{
		Family:  c.Voice.Family,
		Quality: c.Voice.Quality,
	}
	copy(p.Regions[:], c.Voice.Regions)
	return p
}

// PlaybackOptions returns the sequencer options for this configuration.
func (c *Config) PlaybackOptions() []playback.Option {
	return []playback.Option{
		playback.WithLanguage(c.Language),
		playback.WithBaseRate(c.Playback.Rate),
		playback.WithBaseVolume(c.Playback.Volume),
		playback.WithPacing(c.Playback.HeadingPause, c.Playback.BlockPause),
	}
}
