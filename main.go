package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/tphakala/soundscape-go/cmd"
	"github.com/tphakala/soundscape-go/internal/conf"
	"github.com/tphakala/soundscape-go/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
	}

	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, settings.Main.Name, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer closeLog() //nolint:errcheck
		slog.SetDefault(fileLogger)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command error: %v\n", err)
		os.Exit(1)
	}
}
