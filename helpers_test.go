package goAuthClient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type expiredRecorder struct {
	mu     sync.Mutex
	events []SessionExpiredEvent
}

func (r *expiredRecorder) record(ev SessionExpiredEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *expiredRecorder) Events() []SessionExpiredEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionExpiredEvent, len(r.events))
	copy(out, r.events)
	return out
}

type testEnv struct {
	srv     *authtest.Server
	store   *session.MemoryStore
	client  *Client
	expired *expiredRecorder
}

func newTestServer(t *testing.T, cfg authtest.Config) *authtest.Server {
	t.Helper()
	srv, err := authtest.NewServer(cfg)
	if err != nil {
		t.Fatalf("authtest.NewServer failed: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

// newTestEnv starts a fake server, logs a session in and builds a client
// against it. configure may adjust the builder before Build.
func newTestEnv(t *testing.T, srvCfg authtest.Config, configure func(*Builder)) *testEnv {
	t.Helper()

	srv := newTestServer(t, srvCfg)
	store := session.NewMemoryStore()
	expired := &expiredRecorder{}

	b := New().
		WithRefreshEndpoint(srv.RefreshURL()).
		WithStore(store).
		WithMetricsEnabled(true).
		WithSessionExpiredHandler(expired.record)
	if configure != nil {
		configure(b)
	}

	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)

	creds, err := srv.IssueSession("alice")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if err := client.Login(context.Background(), creds); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	return &testEnv{srv: srv, store: store, client: client, expired: expired}
}

func (e *testEnv) get(t *testing.T, ctx context.Context, path string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.srv.URL()+path, nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	return e.client.Do(req)
}

func (e *testEnv) mustGet(t *testing.T, path string) int {
	t.Helper()
	resp, err := e.get(t, context.Background(), path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode
}

func (e *testEnv) storedCredentials(t *testing.T) session.Credentials {
	t.Helper()
	creds, err := e.store.Load(context.Background())
	if err != nil {
		t.Fatalf("store Load failed: %v", err)
	}
	return creds
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	return out
}
