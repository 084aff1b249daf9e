package authtest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RefreshFailure selects how the refresh endpoint misbehaves.
type RefreshFailure int

const (
	// RefreshOK issues tokens normally.
	RefreshOK RefreshFailure = iota
	// RefreshUnauthorized answers 401 {"success":false}.
	RefreshUnauthorized
	// RefreshUnsuccessful answers 200 {"success":false}.
	RefreshUnsuccessful
	// RefreshServerError answers 500.
	RefreshServerError
	// RefreshDropConnection closes the connection without a response.
	RefreshDropConnection
)

// Paths served by [Server].
const (
	PathLogin     = "/auth/login"
	PathRefresh   = "/auth/refresh"
	PathApps      = "/api/apps"
	PathDownloads = "/api/downloads"
	PathBroken    = "/api/broken"
)

// Config defines a public type used by authtest APIs.
type Config struct {
	AccessTTL           time.Duration
	Key                 []byte
	RotateRefreshTokens bool
	Password            string
}

// App is a storefront catalog entry.
type App struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Server is a running fake API. It is safe for concurrent use.
type Server struct {
	srv    *httptest.Server
	tokens *jwt.Manager
	cfg    Config
	apps   []App

	generation atomic.Uint64

	mu            sync.Mutex
	refreshTokens map[string]string
	failure       RefreshFailure
	delay         time.Duration
	gate          chan struct{}

	refreshCalls atomic.Int64
	apiCalls     atomic.Int64
	unauthorized atomic.Int64
	downloads    atomic.Int64
}

// NewServer starts a [Server] on a loopback port.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Minute
	}
	if len(cfg.Key) == 0 {
		cfg.Key = []byte("authtest-signing-key-0123456789abcdef")
	}
	if cfg.Password == "" {
		cfg.Password = "correct-horse"
	}

	tokens, err := jwt.NewManager(jwt.Config{AccessTTL: cfg.AccessTTL, Key: cfg.Key, Issuer: "authtest"})
	if err != nil {
		return nil, err
	}

	s := &Server{
		tokens:        tokens,
		cfg:           cfg,
		refreshTokens: make(map[string]string),
		apps: []App{
			{ID: "app-1", Name: "Notes", Price: 0},
			{ID: "app-2", Name: "Weather", Price: 199},
			{ID: "app-3", Name: "Chess", Price: 499},
		},
	}
	s.generation.Store(1)
	s.srv = httptest.NewServer(s.routes())
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post(PathLogin, s.handleLogin)
	r.Post(PathRefresh, s.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(s.guard)
		r.Get(PathApps, s.handleListApps)
		r.Get(PathApps+"/{id}", s.handleGetApp)
		r.Post(PathDownloads, s.handleDownload)
		r.Get(PathBroken, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Error: "broken"})
		})
	})
	return r
}

// URL returns the server base URL.
func (s *Server) URL() string { return s.srv.URL }

// RefreshURL returns the refresh endpoint URL.
func (s *Server) RefreshURL() string { return s.srv.URL + PathRefresh }

// Close shuts the server down and releases any held refresh.
func (s *Server) Close() {
	s.mu.Lock()
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	s.mu.Unlock()
	s.srv.CloseClientConnections()
	s.srv.Close()
}

// IssueSession mints a credential pair for subject, as a successful login would.
func (s *Server) IssueSession(subject string) (session.Credentials, error) {
	access, err := s.tokens.CreateAccess(subject, s.generation.Load())
	if err != nil {
		return session.Credentials{}, err
	}
	refresh := uuid.NewString()

	s.mu.Lock()
	s.refreshTokens[refresh] = subject
	s.mu.Unlock()

	return session.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// ExpireAll invalidates every access token issued so far.
func (s *Server) ExpireAll() {
	s.generation.Add(1)
}

// RevokeRefreshTokens forgets every refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	clear(s.refreshTokens)
	s.mu.Unlock()
}

// SetRefreshFailure switches the refresh endpoint behaviour.
func (s *Server) SetRefreshFailure(f RefreshFailure) {
	s.mu.Lock()
	s.failure = f
	s.mu.Unlock()
}

// SetRefreshDelay delays every refresh answer by d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// HoldRefresh blocks refresh requests until the returned release func is
// called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// RefreshCalls returns how many refresh requests reached the server.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// APICalls returns how many protected requests reached the server.
func (s *Server) APICalls() int64 { return s.apiCalls.Load() }

// Unauthorized returns how many protected requests were answered 401.
func (s *Server) Unauthorized() int64 { return s.unauthorized.Load() }

// Downloads returns how many download requests were accepted.
func (s *Server) Downloads() int64 { return s.downloads.Load() }

/*
====================================
HANDLERS
====================================
*/

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid request"})
		return
	}
	if body.Password != s.cfg.Password {
		writeJSON(w, http.StatusUnauthorized, envelope{Error: "invalid credentials"})
		return
	}

	creds, err := s.IssueSession(body.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "issue failed"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: tokenPair{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
	}})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	failure, delay, gate := s.failure, s.delay, s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	switch failure {
	case RefreshUnauthorized:
		writeJSON(w, http.StatusUnauthorized, envelope{Error: "refresh token invalid"})
		return
	case RefreshUnsuccessful:
		writeJSON(w, http.StatusOK, envelope{Error: "refresh token invalid"})
		return
	case RefreshServerError:
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "internal"})
		return
	case RefreshDropConnection:
		dropConnection(w)
		return
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "refreshToken required"})
		return
	}

	s.mu.Lock()
	subject, ok := s.refreshTokens[body.RefreshToken]
	var rotated string
	if ok && s.cfg.RotateRefreshTokens {
		delete(s.refreshTokens, body.RefreshToken)
		rotated = uuid.NewString()
		s.refreshTokens[rotated] = subject
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnauthorized, envelope{Error: "refresh token invalid"})
		return
	}

	access, err := s.tokens.CreateAccess(subject, s.generation.Load())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "issue failed"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: tokenPair{AccessToken: access, RefreshToken: rotated}})
}

func (s *Server) handleListApps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: s.apps})
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, app := range s.apps {
		if app.ID == id {
			writeJSON(w, http.StatusOK, envelope{Success: true, Data: app})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, envelope{Error: "app not found"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AppID string `json:"appId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AppID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "appId required"})
		return
	}
	s.downloads.Add(1)
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: map[string]string{"appId": body.AppID}})
}

/*
====================================
GUARD
====================================
*/

type subjectContextKey struct{}

// SubjectFromContext returns the authenticated subject set by the guard.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectContextKey{}).(string)
	return sub, ok
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.apiCalls.Add(1)

		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.reject(w)
			return
		}
		claims, err := s.tokens.ParseAccess(token)
		if err != nil || claims.Generation != s.generation.Load() {
			s.reject(w)
			return
		}

		ctx := context.WithValue(r.Context(), subjectContextKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) reject(w http.ResponseWriter) {
	s.unauthorized.Add(1)
	writeJSON(w, http.StatusUnauthorized, envelope{Error: "unauthorized"})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic(http.ErrAbortHandler)
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(errors.Join(http.ErrAbortHandler, err))
	}
	_ = conn.Close()
}
