package authtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func getApps(t *testing.T, srv *Server, token string) int {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL()+PathApps, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func postRefresh(t *testing.T, srv *Server, refreshToken string) (int, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"refreshToken": refreshToken})
	resp, err := http.Post(srv.RefreshURL(), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestGuardAcceptsIssuedTokenUntilExpireAll(t *testing.T) {
	srv := newTestServer(t, Config{})

	creds, err := srv.IssueSession("alice")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if code := getApps(t, srv, creds.AccessToken); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := getApps(t, srv, ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	srv.ExpireAll()
	if code := getApps(t, srv, creds.AccessToken); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after ExpireAll, got %d", code)
	}
	if srv.Unauthorized() != 2 || srv.APICalls() != 3 {
		t.Fatalf("unexpected counters unauthorized=%d api=%d", srv.Unauthorized(), srv.APICalls())
	}
}

func TestRefreshIssuesTokenForCurrentGeneration(t *testing.T) {
	srv := newTestServer(t, Config{RotateRefreshTokens: true})
	creds, _ := srv.IssueSession("alice")
	srv.ExpireAll()

	code, body := postRefresh(t, srv, creds.RefreshToken)
	if code != http.StatusOK || body["success"] != true {
		t.Fatalf("expected successful refresh, got %d %v", code, body)
	}
	data, _ := body["data"].(map[string]any)
	access, _ := data["accessToken"].(string)
	rotated, _ := data["refreshToken"].(string)
	if access == "" || rotated == "" || rotated == creds.RefreshToken {
		t.Fatalf("expected new access and rotated refresh token, got %v", data)
	}
	if code := getApps(t, srv, access); code != http.StatusOK {
		t.Fatalf("expected refreshed token to be accepted, got %d", code)
	}

	if code, _ := postRefresh(t, srv, creds.RefreshToken); code != http.StatusUnauthorized {
		t.Fatalf("expected rotated-out refresh token to be refused, got %d", code)
	}
	if srv.RefreshCalls() != 2 {
		t.Fatalf("expected 2 refresh calls, got %d", srv.RefreshCalls())
	}
}

func TestRefreshFailureModes(t *testing.T) {
	srv := newTestServer(t, Config{})
	creds, _ := srv.IssueSession("alice")

	srv.SetRefreshFailure(RefreshUnsuccessful)
	if code, body := postRefresh(t, srv, creds.RefreshToken); code != http.StatusOK || body["success"] != false {
		t.Fatalf("expected 200 success=false, got %d %v", code, body)
	}

	srv.SetRefreshFailure(RefreshServerError)
	if code, _ := postRefresh(t, srv, creds.RefreshToken); code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}

	srv.SetRefreshFailure(RefreshDropConnection)
	body, _ := json.Marshal(map[string]string{"refreshToken": creds.RefreshToken})
	if resp, err := http.Post(srv.RefreshURL(), "application/json", bytes.NewReader(body)); err == nil {
		resp.Body.Close()
		t.Fatal("expected dropped connection to surface as a transport error")
	}
}

func TestLoginChecksPassword(t *testing.T) {
	srv := newTestServer(t, Config{Password: "pw"})

	post := func(password string) int {
		body, _ := json.Marshal(map[string]string{"username": "alice", "password": password})
		resp, err := http.Post(srv.URL()+PathLogin, "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post("nope"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := post("pw"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}
