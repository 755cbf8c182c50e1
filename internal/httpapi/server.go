// Package httpapi exposes the SharePoint gateway's HTTP surface: download,
// upload, arribo resolution, health, and configuration introspection,
// wired through a chi router with CORS and request-scoped logging.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/IGRA27/sharepoint-graph/internal/config"
	"github.com/IGRA27/sharepoint-graph/internal/graph"
)

// DriveClient is the slice of the graph client the handlers consume.
// Tests substitute a fake; production uses *graph.Client.
type DriveClient interface {
	ResolveDownload(ctx context.Context, ref graph.Ref) (*graph.Download, error)
	Stream(ctx context.Context, downloadURL string, w io.Writer) (int64, error)
	Upload(ctx context.Context, targetPath, filename string, data []byte) (*graph.Item, error)
	FindInFolder(ctx context.Context, folderPath string, filter graph.Filter) ([]graph.Item, error)
}

// ClientFactory builds a DriveClient for one request. The reference shape
// constructs a fresh client per request; the graph client's memoization is
// concurrency-safe either way, so a caching factory is a valid swap.
type ClientFactory func(ctx context.Context) (DriveClient, error)

// Server holds the gateway's request-handling dependencies.
type Server struct {
	settings  *config.Settings
	logger    *slog.Logger
	metrics   *Metrics
	newClient ClientFactory
}

// New assembles a Server with the production client factory.
func New(settings *config.Settings, logger *slog.Logger) *Server {
	return &Server{
		settings: settings,
		logger:   logger,
		metrics:  NewMetrics(),
		newClient: func(ctx context.Context) (DriveClient, error) {
			return graph.New(ctx, settings, logger)
		},
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.settings.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	r.Route("/sharepoint", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/config-check", s.handleConfigCheck)
		r.Post("/download", s.handleDownload)
		r.Post("/upload", s.handleUpload)
		r.Post("/resolve-arribo", s.handleResolveArribo)
	})

	return r
}
