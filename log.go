package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ficreader/narrator/utils"
)

// logFile receives every log line; plain mode mirrors it to stderr.
var logFile *lumberjack.Logger

func getLogFilePath() (string, error) {
	if p := viper.GetString("log.file"); p != "" {
		return utils.ExpandPath(p), nil
	}
	dir, err := gap.NewScope(gap.User, "narrator").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "narrator.log"), nil
}

// setupLog sends log output to a rotating log file at the configured level.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	path, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}

	level := log.InfoLevel
	if s := viper.GetString("log.level"); s != "" {
		if level, err = log.ParseLevel(s); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", s, err)
		}
	}

	logFile = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(logFile)
	log.SetLevel(level)
	return logFile.Close, nil
}

// logToConsole mirrors log output to stderr.
func logToConsole() {
	if logFile == nil {
		log.SetOutput(os.Stderr)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logFile))
}
