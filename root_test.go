package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IGRA27/sharepoint-graph/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()

	flagConfigPath = ""
	flagJSON = false
	flagVerbose = false
	flagQuiet = false
}

func TestBuildLogger_LevelFromSettings(t *testing.T) {
	resetFlags(t)

	settings := config.Default()
	settings.LogLevel = "warn"

	logger := buildLogger(settings)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestBuildLogger_VerboseWins(t *testing.T) {
	resetFlags(t)
	flagVerbose = true

	settings := config.Default()
	settings.LogLevel = "error"

	logger := buildLogger(settings)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietWins(t *testing.T) {
	resetFlags(t)
	flagQuiet = true

	logger := buildLogger(config.Default())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestRootCmd_Metadata(t *testing.T) {
	cmd := newRootCmd()

	assert.Equal(t, "sharepoint-io", cmd.Use)
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)

	for _, name := range []string{"config", "json", "verbose", "quiet"} {
		require.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
