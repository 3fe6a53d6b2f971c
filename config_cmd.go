package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# language tag attached to every utterance
language: "en-US"

voice:
  # language family a voice must belong to
  family: "en"
  # preferred regions, best first (at most two)
  regions: ["CA", "US"]
  # voice name keywords that advertise a higher quality tier
  quality: ["natural"]
  # YAML file with extra voices, reloaded on change
  # catalog: "~/.config/narrator/voices.yaml"

playback:
  # speaking rate multiplier (0.1 to 4.0)
  rate: 1.0
  # volume multiplier (0.0 to 2.0)
  volume: 1.0
  # silence after the chapter title
  heading_pause: "500ms"
  # silence after every paragraph
  block_pause: "250ms"

host:
  # speech synthesizer: espeak-ng or say (empty detects)
  command: ""
  # log utterances instead of speaking them
  dry_run: false

cache:
  # downloaded chapters (default: user cache dir)
  # dir: "~/.cache/narrator/chapters"
  # size limit in megabytes, 0 disables the cache
  max_size: 64
  # how long a downloaded chapter is reused
  max_age: "24h"

log:
  # debug, info, warn or error
  level: "info"
  # log file (default: user cache dir)
  # file: "~/.cache/narrator/narrator.log"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrator config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrator config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrator config\nnarrator config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrator", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
