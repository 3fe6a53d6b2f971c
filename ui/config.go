package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	// Maximum width of the wrapped chunk text
	Width int `env:"NARRATOR_TUI_WIDTH" envDefault:"80"`

	// How often the playback state is polled
	Tick time.Duration `env:"NARRATOR_TUI_TICK" envDefault:"250ms"`
}
