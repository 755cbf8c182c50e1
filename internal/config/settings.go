// Package config loads and validates the gateway's configuration.
// Settings are resolved once at startup from defaults, an optional TOML
// file, and environment variables (highest precedence), and the resulting
// snapshot is immutable; components hold a pointer to it and never consult
// ambient globals.
package config

import "strings"

// Default values. These represent "layer 0" of the override chain and let
// the service boot with no config file and no environment at all (the
// health and config-check endpoints work without credentials).
const (
	defaultListenAddr   = ":8000"
	defaultSiteHostname = "atiscodesa.sharepoint.com"
	defaultSitePath     = "/sites/Loyalty2021"
	defaultAllowOrigins = "*"
	defaultTimezone     = "America/Guayaquil"
	defaultDownloadDir  = "/tmp/sharepoint"
	defaultChunkSize    = 8192000 // 25 × 320 KiB, see ChunkAlignment
	defaultLogLevel     = "info"
	defaultLogFormat    = "auto"
)

// ChunkAlignment is the required alignment for the resumable-upload chunk
// size. The Graph API rejects chunks that are not a multiple of 320 KiB
// (except the final one).
const ChunkAlignment = 320 * 1024

// Settings is the immutable configuration snapshot for the gateway.
// Credentials may be empty at load time; they are validated when a Graph
// client is constructed, not here.
type Settings struct {
	ListenAddr string `toml:"listen_addr"`

	// Azure AD application credentials for the client-credentials grant.
	TenantID     string `toml:"tenant_id"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`

	// SharePoint site coordinates.
	SiteHostname string `toml:"site_hostname"`
	SitePath     string `toml:"site_path"`

	// AllowOrigins is a comma-separated list of CORS origins.
	AllowOrigins string `toml:"allow_origins"`

	// Timezone is used to default year/month in resolve-arribo.
	Timezone string `toml:"timezone"`

	// DownloadDir is created at startup for temporary downloads.
	DownloadDir string `toml:"download_dir"`

	// SSLVerify disables upstream certificate verification when false.
	// Applies uniformly to the token endpoint and all Graph calls.
	SSLVerify bool `toml:"ssl_verify"`

	// ChunkSize is the resumable-upload chunk size in bytes.
	// Must be a multiple of ChunkAlignment.
	ChunkSize int64 `toml:"chunk_size"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns a Settings populated with all default values. Used as
// the starting point for TOML decoding so unset keys retain defaults.
func Default() *Settings {
	return &Settings{
		ListenAddr:   defaultListenAddr,
		SiteHostname: defaultSiteHostname,
		SitePath:     defaultSitePath,
		AllowOrigins: defaultAllowOrigins,
		Timezone:     defaultTimezone,
		DownloadDir:  defaultDownloadDir,
		SSLVerify:    true,
		ChunkSize:    defaultChunkSize,
		LogLevel:     defaultLogLevel,
		LogFormat:    defaultLogFormat,
	}
}

// Origins splits AllowOrigins into a trimmed slice for the CORS middleware.
func (s *Settings) Origins() []string {
	parts := strings.Split(s.AllowOrigins, ",")

	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}

// HasCredentials reports whether all three AAD credentials are present.
func (s *Settings) HasCredentials() bool {
	return s.TenantID != "" && s.ClientID != "" && s.ClientSecret != ""
}
