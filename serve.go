package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IGRA27/sharepoint-graph/internal/config"
	"github.com/IGRA27/sharepoint-graph/internal/httpapi"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// runServe loads configuration and runs the HTTP server until SIGINT or
// SIGTERM. Downloads and chunked uploads can run for minutes, so the server
// carries no write timeout; per-call deadlines live in the Graph client.
func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := buildLogger(settings)

	if err := os.MkdirAll(settings.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("creating download dir: %w", err)
	}

	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           httpapi.New(settings, logger).Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("listening",
			slog.String("addr", settings.ListenAddr),
			slog.String("site_hostname", settings.SiteHostname),
			slog.String("site_path", settings.SitePath),
			slog.Bool("credentials_present", settings.HasCredentials()),
		)

		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	return nil
}
