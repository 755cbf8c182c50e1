package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variable names. AAD_* and SITE_* match the deployment
// convention already in use for this service.
const (
	EnvListenAddr   = "LISTEN_ADDR"
	EnvTenantID     = "AAD_TENANT_ID"
	EnvClientID     = "AAD_CLIENT_ID"
	EnvClientSecret = "AAD_CLIENT_SECRET"
	EnvSiteHostname = "SITE_HOSTNAME"
	EnvSitePath     = "SITE_PATH"
	EnvAllowOrigins = "ALLOW_ORIGINS"
	EnvTimezone     = "TIMEZONE"
	EnvDownloadDir  = "DOWNLOAD_DIR"
	EnvSSLVerify    = "SSL_VERIFY"
	EnvChunkSize    = "CHUNK_SIZE"
	EnvLogLevel     = "LOG_LEVEL"
	EnvLogFormat    = "LOG_FORMAT"
)

// Load resolves the effective Settings from the three-layer override chain:
// defaults -> TOML config file -> environment variables. A `.env` file in
// the working directory is folded into the environment first (ignored when
// absent) so container deployments and local runs share one code path.
// path may be empty, in which case no config file is read.
func Load(path string) (*Settings, error) {
	_ = godotenv.Load()

	s := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, s)
		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}

		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown key %q in config file %s", undecoded[0].String(), path)
		}
	}

	if err := applyEnv(s); err != nil {
		return nil, err
	}

	if err := validate(s); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return s, nil
}

// applyEnv overlays environment variables onto s. Empty variables leave
// the current value untouched.
func applyEnv(s *Settings) error {
	setString(EnvListenAddr, &s.ListenAddr)
	setString(EnvTenantID, &s.TenantID)
	setString(EnvClientID, &s.ClientID)
	setString(EnvClientSecret, &s.ClientSecret)
	setString(EnvSiteHostname, &s.SiteHostname)
	setString(EnvSitePath, &s.SitePath)
	setString(EnvAllowOrigins, &s.AllowOrigins)
	setString(EnvTimezone, &s.Timezone)
	setString(EnvDownloadDir, &s.DownloadDir)
	setString(EnvLogLevel, &s.LogLevel)
	setString(EnvLogFormat, &s.LogFormat)

	if v := os.Getenv(EnvSSLVerify); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing %s=%q: %w", EnvSSLVerify, v, err)
		}

		s.SSLVerify = b
	}

	if v := os.Getenv(EnvChunkSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %s=%q: %w", EnvChunkSize, v, err)
		}

		s.ChunkSize = n
	}

	return nil
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// validate checks the non-credential invariants of a Settings snapshot.
// Credentials are deliberately not required here; the service boots
// without them and fails at Graph client construction instead.
func validate(s *Settings) error {
	if s.SiteHostname == "" {
		return errors.New("site_hostname must not be empty")
	}

	if s.SitePath == "" || s.SitePath[0] != '/' {
		return fmt.Errorf("site_path %q must start with /", s.SitePath)
	}

	if s.ChunkSize <= 0 || s.ChunkSize%ChunkAlignment != 0 {
		return fmt.Errorf("chunk_size %d must be a positive multiple of %d", s.ChunkSize, ChunkAlignment)
	}

	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}

	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn, or error)", s.LogLevel)
	}

	switch s.LogFormat {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q (want auto, text, or json)", s.LogFormat)
	}

	return nil
}
