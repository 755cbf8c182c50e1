package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/IGRA27/sharepoint-graph/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// newRootCmd builds the root command. The binary is a single-purpose
// service, so the root command runs the HTTP server directly.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sharepoint-io",
		Short:   "SharePoint document library gateway",
		Long:    "An HTTP gateway for downloading, uploading, and locating files in a SharePoint document library via Microsoft Graph.",
		Version: version,
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runServe,
	}

	cmd.Flags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "force JSON log output")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	return cmd
}

// buildLogger creates an slog.Logger from the loaded settings. Config-file
// log level provides the baseline; --verbose and --quiet override it because
// CLI flags always win. Format "auto" picks text on a terminal and JSON
// otherwise, so service logs stay machine-readable under systemd or Docker.
func buildLogger(settings *config.Settings) *slog.Logger {
	level := slog.LevelInfo

	switch settings.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	format := settings.LogFormat
	if flagJSON {
		format = "json"
	}

	if format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
