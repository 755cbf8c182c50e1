package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/IGRA27/sharepoint-graph/internal/config"
)

// defaultBaseURL is the Microsoft Graph v1.0 endpoint.
const defaultBaseURL = "https://graph.microsoft.com/v1.0"

const userAgent = "sharepoint-graph/0.1"

// Timeout families per operation class. Callers must never hang
// indefinitely on a stalled remote endpoint.
const (
	metadataTimeout     = 30 * time.Second
	simpleUploadTimeout = 120 * time.Second
	chunkUploadTimeout  = 300 * time.Second
)

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer per
// Go convention "accept interfaces, return structs"; auth.go provides the
// client-credentials implementation.
type TokenSource interface {
	Token() (string, error)
}

// Client is the SharePoint adapter over the Microsoft Graph API. It is
// safe for concurrent use: the memoized site and drive identifiers are
// resolved at most once per Client regardless of caller concurrency, so a
// Client may live for a single request or for the whole process.
//
// There is deliberately no retry anywhere in this client. Failures surface
// immediately with status and body preserved; retry policy belongs to the
// caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	settings   *config.Settings
	logger     *slog.Logger

	// Memoized site/drive identifiers. group collapses concurrent
	// resolutions; mu guards the cached values.
	group   singleflight.Group
	mu      sync.Mutex
	siteID  string
	driveID string
}

// New constructs a production Client from settings. It fails fast with
// ConfigError, before any network call, when credentials are missing.
func New(ctx context.Context, settings *config.Settings, logger *slog.Logger) (*Client, error) {
	var missing []string

	if settings.TenantID == "" {
		missing = append(missing, config.EnvTenantID)
	}

	if settings.ClientID == "" {
		missing = append(missing, config.EnvClientID)
	}

	if settings.ClientSecret == "" {
		missing = append(missing, config.EnvClientSecret)
	}

	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	httpClient := newHTTPClient(settings)
	token := NewTokenSource(ctx, settings, httpClient, logger)

	return NewClient(defaultBaseURL, httpClient, token, settings, logger), nil
}

// NewClient assembles a Client from explicit dependencies. Tests point
// baseURL at an httptest server and inject a static token.
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, settings *config.Settings, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		settings:   settings,
		logger:     logger,
	}
}

// cancelBody ties a request's timeout cancellation to the response body:
// the timeout stays armed while the caller reads and is released on Close.
// Without this, canceling when do returns would kill any 2xx body that is
// not fully buffered with the headers.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()

	return err
}

// do executes a single authenticated request against the Graph API with
// the given timeout. The path is appended to the client's base URL. The
// caller is responsible for closing the response body on success, which
// also releases the timeout; non-2xx responses are consumed and returned
// as *RemoteError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("graph: creating request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		cancel()

		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by caller or checkResponse
	if err != nil {
		cancel()

		return nil, fmt.Errorf("graph: %s %s: %w", method, path, err)
	}

	if err := checkResponse(resp); err != nil {
		cancel()

		c.logger.Warn("graph request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	c.logger.Debug("graph request succeeded",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
	)

	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

// checkResponse converts a non-2xx response into a *RemoteError, reading
// and closing the body. Returns nil (body left open) for success codes.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	return &RemoteError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("request-id"),
		Message:    string(errBody),
		Err:        classifyStatus(resp.StatusCode),
	}
}
