package graph

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/IGRA27/sharepoint-graph/internal/config"
)

// tokenScope is the client-credentials scope for application permissions.
const tokenScope = "https://graph.microsoft.com/.default"

// authorityFormat is the Azure AD v2.0 token endpoint for a tenant.
const authorityFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"

// downloadHeaderTimeout bounds how long a download waits for response
// headers. The body itself streams under the caller's context, so consumer
// disconnects stop the transfer cooperatively.
const downloadHeaderTimeout = 60 * time.Second

// newHTTPClient builds the single HTTP client used for the token endpoint
// and all Graph calls. The TLS-verify toggle applies here and nowhere else,
// so the control plane and data plane cannot disagree about verification.
func newHTTPClient(settings *config.Settings) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = downloadHeaderTimeout

	if !settings.SSLVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{} //nolint:gosec // verification toggle is deliberate
		}

		transport.TLSClientConfig.InsecureSkipVerify = true
	}

	return &http.Client{Transport: transport}
}

// NewTokenSource returns a TokenSource for the configured service principal
// using the client-credentials grant. Tokens are cached and refreshed by
// the oauth2 library; httpClient carries the TLS-verify toggle into the
// token handshake.
//
// ctx must outlive the TokenSource: it is bound to the underlying oauth2
// source and governs token refresh requests.
func NewTokenSource(ctx context.Context, settings *config.Settings, httpClient *http.Client, logger *slog.Logger) TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		TokenURL:     fmt.Sprintf(authorityFormat, settings.TenantID),
		Scopes:       []string{tokenScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	return &tokenBridge{src: cfg.TokenSource(ctx), logger: logger}
}

// tokenBridge adapts oauth2.TokenSource to graph.TokenSource and maps
// token endpoint refusals to AuthError with the provider's description.
type tokenBridge struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

func (b *tokenBridge) Token() (string, error) {
	tok, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", &AuthError{Description: retrieveErr.ErrorDescription, Err: err}
		}

		return "", &AuthError{Err: err}
	}

	if tok.AccessToken == "" {
		b.logger.Warn("token endpoint returned no access token")

		return "", &AuthError{Description: "token endpoint returned no access token"}
	}

	b.logger.Debug("token acquired",
		slog.Time("expiry", tok.Expiry),
		slog.Bool("valid", tok.Valid()),
	)

	return tok.AccessToken, nil
}
