package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/venkytv/gcal-events/pkg/config"
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gcal-events",
		Short: "Create and fetch Google Calendar events with explicit time zones",
		Long: `gcal-events creates and fetches events through the Google Calendar API
using a service account.

Time zones are given as designators:
  - UTC
  - Region/City, for example Asia/Tokyo
  - GMT+HH:MM or GMT-HH:MM, for example GMT+09:00`,
		SilenceUsage: true,
		Version:      Version,
	}
	cmd.SetVersionTemplate(fmt.Sprintf("gcal-events %s (commit %s, built %s)\n", Version, GitCommit, BuildTime))

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newCreateCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newTZCmd(opts))

	return cmd
}

// loadConfig reads the configuration and builds a logger writing to w
func loadConfig(opts *rootOptions, w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging, opts.debug, w), nil
}

// setupLogger configures the application logger
func setupLogger(cfg config.LoggingConfig, debugMode bool, w io.Writer) *slog.Logger {
	var level slog.Level

	// Override config level if debug mode is enabled
	if debugMode {
		level = slog.LevelDebug
	} else {
		switch cfg.Level {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}
