package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadFromViper loads the configuration from v, starting from Default. A
// nil v uses the global viper instance.
func LoadFromViper(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	cfg := Default()

	if v.IsSet("language") {
		cfg.Language = v.GetString("language")
	}

	// Voice settings
	if v.IsSet("voice.family") {
		cfg.Voice.Family = v.GetString("voice.family")
	}
	if v.IsSet("voice.regions") {
		cfg.Voice.Regions = v.GetStringSlice("voice.regions")
	}
	if v.IsSet("voice.quality") {
		cfg.Voice.Quality = v.GetStringSlice("voice.quality")
	}
	if v.IsSet("voice.catalog") {
		cfg.Voice.Catalog = v.GetString("voice.catalog")
	}

	// Playback settings
	if v.IsSet("playback.rate") {
		cfg.Playback.Rate = v.GetFloat64("playback.rate")
	}
	if v.IsSet("playback.volume") {
		cfg.Playback.Volume = v.GetFloat64("playback.volume")
	}
	if v.IsSet("playback.heading_pause") {
		cfg.Playback.HeadingPause = v.GetDuration("playback.heading_pause")
	}
	if v.IsSet("playback.block_pause") {
		cfg.Playback.BlockPause = v.GetDuration("playback.block_pause")
	}

	// Host settings
	if v.IsSet("host.command") {
		cfg.Host.Command = v.GetString("host.command")
	}
	if v.IsSet("host.dry_run") {
		cfg.Host.DryRun = v.GetBool("host.dry_run")
	}

	// Cache settings
	if v.IsSet("cache.dir") {
		cfg.Cache.Dir = v.GetString("cache.dir")
	}
	if v.IsSet("cache.max_size") {
		cfg.Cache.MaxSize = v.GetInt("cache.max_size")
	}
	if v.IsSet("cache.max_age") {
		cfg.Cache.MaxAge = v.GetDuration("cache.max_age")
	}

	// Log settings
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.file") {
		cfg.Log.File = v.GetString("log.file")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
