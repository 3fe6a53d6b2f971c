// Package main provides the entry point for the narrator CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/ficreader/narrator/internal/chapter"
	"github.com/ficreader/narrator/internal/config"
	"github.com/ficreader/narrator/internal/surface"
	"github.com/ficreader/narrator/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	tui          bool
	dryRun       bool
	voiceCommand string
	lang         string
	catalog      string
	debug        bool

	rootCmd = &cobra.Command{
		Use:   "narrator [CHAPTER]",
		Short: "Read a fiction chapter aloud",
		Long: paragraph(
			fmt.Sprintf("\nRead a fiction chapter %s, one voice for the story and one for the dialog.", keyword("aloud")),
		),
		Example: paragraph("narrator chapter.json\nnarrator --dry-run https://example.com/c/C000000001.json\ncat chapter.json | narrator"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			return loadConfigFile()
		},
		RunE: execute,
	}
)

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromViper(nil)
	if err != nil {
		return err
	}

	loader, closeLoader := newChapterLoader(cfg)
	ch, err := loadChapter(cmd.Context(), loader, args, os.Stdin)
	closeLoader()
	if err != nil {
		return err
	}

	speaker, flavor := newSpeaker(cfg)
	src, err := newVoiceSource(cmd.Context(), cfg, flavor)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	s := surface.Mount(ch, speaker, src, surface.Options{
		Preferences: cfg.Preferences(),
		Playback:    cfg.PlaybackOptions(),
		Logger:      log.WithPrefix("surface"),
	})
	defer s.Unmount()

	if useTUI(cmd) {
		return runTUI(s)
	}
	return runPlain(cmd.Context(), s, cmd.OutOrStdout())
}

// loadChapter loads the chapter named by args, or reads a JSON chapter from
// stdin when it is a pipe.
func loadChapter(ctx context.Context, loader chapter.Loader, args []string, stdin *os.File) (chapter.Chapter, error) {
	if len(args) > 0 {
		return loader.Load(ctx, args[0])
	}

	pipe, err := stdinIsPipe(stdin)
	if err != nil {
		return chapter.Chapter{}, err
	}
	if !pipe {
		return chapter.Chapter{}, errors.New("missing chapter: pass a file, a URL or pipe a JSON chapter on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return chapter.Chapter{}, fmt.Errorf("unable to read from stdin: %w", err)
	}
	ch, err := chapter.DecodeJSON(data)
	if err != nil {
		return chapter.Chapter{}, err
	}
	return ch, ch.Validate()
}

func stdinIsPipe(f *os.File) (bool, error) {
	stat, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// useTUI reports whether the terminal UI should be shown. The --tui flag
// wins; otherwise the UI is used when stdout is a terminal.
func useTUI(cmd *cobra.Command) bool {
	if f := cmd.Flags().Lookup("tui"); f != nil && f.Changed {
		return tui
	}
	return term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec
}

func runTUI(s *surface.Surface) error {
	// Read environment to get the TUI settings
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	if _, err := ui.NewProgram(cfg, s).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// runPlain reads the chapter once in the foreground. An interrupt stops
// reading and returns cleanly.
func runPlain(ctx context.Context, s *surface.Surface, w io.Writer) error {
	if !s.Available() {
		return errors.New("no speech service available: install espeak-ng or say, or use --dry-run")
	}
	logToConsole()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Toggle(); err != nil {
		return err
	}

	finished := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		s.Wait()
		close(finished)
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			log.Info("Interrupted, stopping")
			s.Unmount()
		case <-finished:
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	st := s.State()
	_, err := fmt.Fprintf(w, "Read %d of %d chunks of %q\n", st.Cursor, st.Total, s.Title())
	return err
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug messages")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "language tag of every utterance (default en-US)")
	rootCmd.PersistentFlags().StringVar(&catalog, "catalog", "", "YAML file with extra voices")
	rootCmd.PersistentFlags().StringVar(&voiceCommand, "voice-command", "", "speech synthesizer: espeak-ng or say (default: detect)")
	rootCmd.Flags().BoolVarP(&tui, "tui", "t", false, "display with tui (default when stdout is a terminal)")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "log utterances instead of speaking them")

	// Config bindings
	_ = viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("lang"))
	_ = viper.BindPFlag("voice.catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("host.command", rootCmd.PersistentFlags().Lookup("voice-command"))
	_ = viper.BindPFlag("host.dry_run", rootCmd.Flags().Lookup("dry-run"))

	rootCmd.AddCommand(configCmd, manCmd, scriptCmd, voicesCmd, chaptersCmd)
}

// loadConfigFile reads the file named by --config in place of the one found
// in the default places.
func loadConfigFile() error {
	if configFile == "" || configFile == viper.ConfigFileUsed() {
		return nil
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to read config file %s: %w", configFile, err)
	}
	log.Debug("Using configuration file", "path", configFile)
	return nil
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "narrator")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrator")}, dirs...)
	}

	if c := os.Getenv("NARRATOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrator")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("narrator")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "narrator.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
