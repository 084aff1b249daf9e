package goAuthClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/tidwall/gjson"
)

// Refresher exchanges a refresh token for a new credential pair.
//
// Implementations wrap [ErrRefreshRejected] when the server refused the token.
// Any other error is treated as a transport failure. A returned pair without a
// RefreshToken keeps the stored one.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (session.Credentials, error)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context, refreshToken string) (session.Credentials, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	return f(ctx, refreshToken)
}

// HTTPRefresher posts the refresh token as JSON to a fixed endpoint and reads
// the new pair from the response with gjson paths.
//
// It owns its *http.Client, built on a bare transport, so refresh calls never
// pass through the intercepting transport.
//
//	Docs: docs/refresh.md
type HTTPRefresher struct {
	endpoint         string
	client           *http.Client
	requestField     string
	successPath      string
	accessTokenPath  string
	refreshTokenPath string
	maxResponseBytes int64
}

// NewHTTPRefresher describes the newhttprefresher operation and its observable behavior.
//
// NewHTTPRefresher returns an error when the endpoint is missing or rt is an intercepting transport.
// A nil rt uses a clone of http.DefaultTransport.
func NewHTTPRefresher(cfg RefreshConfig, rt http.RoundTripper) (*HTTPRefresher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("refresh endpoint required")
	}
	if _, ok := rt.(*transport); ok {
		return nil, errors.New("refresh transport must not be an intercepting transport")
	}
	if rt == nil {
		rt = bareTransport()
	}

	defaults := DefaultConfig().Refresh
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaults.Timeout
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaults.MaxResponseBytes
	}
	field := cfg.RequestField
	if field == "" {
		field = defaults.RequestField
	}
	accessPath := cfg.AccessTokenPath
	if accessPath == "" {
		accessPath = defaults.AccessTokenPath
	}

	return &HTTPRefresher{
		endpoint:         endpoint,
		client:           &http.Client{Transport: rt, Timeout: timeout},
		requestField:     field,
		successPath:      cfg.SuccessPath,
		accessTokenPath:  accessPath,
		refreshTokenPath: cfg.RefreshTokenPath,
		maxResponseBytes: maxBytes,
	}, nil
}

// Endpoint returns the refresh URL.
func (r *HTTPRefresher) Endpoint() string {
	return r.endpoint
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh returns an error wrapping ErrRefreshTransport for network errors and timeouts,
// and ErrRefreshRejected for non-2xx answers, success != true or a missing access token.
// Refresh can be used concurrently.
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	payload, err := json.Marshal(map[string]string{r.requestField: refreshToken})
	if err != nil {
		return session.Credentials{}, fmt.Errorf("%w: encode request: %v", ErrRefreshTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return session.Credentials{}, fmt.Errorf("%w: build request: %v", ErrRefreshTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return session.Credentials{}, fmt.Errorf("%w: %w", ErrRefreshTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxResponseBytes+1))
	if err != nil {
		return session.Credentials{}, fmt.Errorf("%w: read response: %w", ErrRefreshTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return session.Credentials{}, fmt.Errorf("%w: status %d", ErrRefreshRejected, resp.StatusCode)
	}
	if int64(len(body)) > r.maxResponseBytes {
		return session.Credentials{}, fmt.Errorf("%w: response exceeds %d bytes", ErrRefreshRejected, r.maxResponseBytes)
	}
	if !gjson.ValidBytes(body) {
		return session.Credentials{}, fmt.Errorf("%w: response is not valid JSON", ErrRefreshRejected)
	}

	parsed := gjson.ParseBytes(body)
	if r.successPath != "" && parsed.Get(r.successPath).Type != gjson.True {
		return session.Credentials{}, fmt.Errorf("%w: %s is not true", ErrRefreshRejected, r.successPath)
	}

	access := parsed.Get(r.accessTokenPath)
	if access.Type != gjson.String || access.Str == "" {
		return session.Credentials{}, fmt.Errorf("%w: %s missing", ErrRefreshRejected, r.accessTokenPath)
	}

	creds := session.Credentials{AccessToken: access.Str}
	if r.refreshTokenPath != "" {
		if rotated := parsed.Get(r.refreshTokenPath); rotated.Type == gjson.String {
			creds.RefreshToken = rotated.Str
		}
	}
	return creds, nil
}

func bareTransport() http.RoundTripper {
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		return base.Clone()
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
}

func isRefreshRejected(err error) bool {
	return errors.Is(err, ErrRefreshRejected)
}
