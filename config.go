package goAuthClient

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config defines a public type used by goAuthClient APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Refresh RefreshConfig
	Auth    AuthConfig
	Replay  ReplayConfig
	Audit   AuditConfig
	Metrics MetricsConfig
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig describes the refresh endpoint and how its JSON body is read.
//
// SuccessPath, AccessTokenPath and RefreshTokenPath are gjson paths. An empty
// SuccessPath disables the success flag check.
type RefreshConfig struct {
	Endpoint         string
	Timeout          time.Duration
	ProactiveWindow  time.Duration
	RequestField     string
	SuccessPath      string
	AccessTokenPath  string
	RefreshTokenPath string
	MaxResponseBytes int64
}

/*
====================================
AUTH HEADER CONFIG
====================================
*/

// AuthConfig defines a public type used by goAuthClient APIs.
//
// AuthConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuthConfig struct {
	HeaderName string
	Scheme     string
}

/*
====================================
REPLAY CONFIG
====================================
*/

// ReplayConfig bounds how much of a 401 body is held in memory while its
// request waits for a refresh. Larger bodies are streamed from the network
// after the buffered prefix.
type ReplayConfig struct {
	MaxBufferedBody int64
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig defines a public type used by goAuthClient APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goAuthClient APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by [New]. The refresh endpoint
// is left empty and must be set unless a custom [Refresher] is supplied.
func DefaultConfig() Config {
	return Config{
		Refresh: RefreshConfig{
			Timeout:          10 * time.Second,
			ProactiveWindow:  0,
			RequestField:     "refreshToken",
			SuccessPath:      "success",
			AccessTokenPath:  "data.accessToken",
			RefreshTokenPath: "data.refreshToken",
			MaxResponseBytes: 64 << 10,
		},
		Auth: AuthConfig{
			HeaderName: "Authorization",
			Scheme:     "Bearer",
		},
		Replay: ReplayConfig{
			MaxBufferedBody: 16 << 10,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Refresh.Endpoint = strings.TrimSpace(cfg.Refresh.Endpoint)
	out.Auth.HeaderName = strings.TrimSpace(cfg.Auth.HeaderName)
	out.Auth.Scheme = strings.TrimSpace(cfg.Auth.Scheme)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when a field is out of range or inconsistent.
// Validate does not mutate shared global state and can be used concurrently.
func (c *Config) Validate() error {
	// Refresh
	if c.Refresh.Endpoint != "" {
		u, err := url.Parse(c.Refresh.Endpoint)
		if err != nil || u.Host == "" {
			return errors.New("Refresh Endpoint must be an absolute URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("Refresh Endpoint scheme must be http or https")
		}
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Refresh.Timeout > 5*time.Minute {
		return errors.New("Refresh Timeout must be <= 5m")
	}
	if c.Refresh.ProactiveWindow < 0 {
		return errors.New("Refresh ProactiveWindow must be >= 0")
	}
	if strings.TrimSpace(c.Refresh.RequestField) == "" {
		return errors.New("Refresh RequestField must not be empty")
	}
	if strings.TrimSpace(c.Refresh.AccessTokenPath) == "" {
		return errors.New("Refresh AccessTokenPath must not be empty")
	}
	if c.Refresh.MaxResponseBytes <= 0 {
		return errors.New("Refresh MaxResponseBytes must be > 0")
	}

	// Auth header
	name := strings.TrimSpace(c.Auth.HeaderName)
	if name == "" {
		return errors.New("Auth HeaderName must not be empty")
	}
	if !validHeaderName(name) {
		return errors.New("Auth HeaderName contains invalid characters")
	}
	if strings.ContainsAny(c.Auth.Scheme, " \t\r\n") {
		return errors.New("Auth Scheme must be a single token")
	}

	// Replay
	if c.Replay.MaxBufferedBody <= 0 {
		return errors.New("Replay MaxBufferedBody must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func validHeaderName(name string) bool {
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", ch) >= 0:
		default:
			return false
		}
	}
	return true
}
