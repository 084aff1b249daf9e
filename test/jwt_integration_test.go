//go:build integration
// +build integration

package test

import (
	"context"
	"net/http"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
)

func TestNaturalAccessTokenExpiry(t *testing.T) {
	ctx := context.Background()
	srv := newIntegrationServer(t, authtest.Config{AccessTTL: time.Second})
	client := newIntegrationClient(t, srv, session.NewMemoryStore())

	creds, _ := srv.IssueSession("alice")
	if err := client.Login(ctx, creds); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if status := getStatus(t, client, srv.URL()+authtest.PathApps); status != http.StatusOK {
		t.Fatalf("expected 200 after refresh, got %d", status)
	}
	if srv.RefreshCalls() != 1 || srv.Unauthorized() != 1 {
		t.Fatalf("expected one 401 and one refresh, got %d and %d", srv.Unauthorized(), srv.RefreshCalls())
	}
}

func TestProactiveRefreshAvoidsUnauthorized(t *testing.T) {
	ctx := context.Background()
	srv := newIntegrationServer(t, authtest.Config{AccessTTL: 4 * time.Second})

	client, err := goAuthClient.New().
		WithRefreshEndpoint(srv.RefreshURL()).
		WithProactiveRefresh(2 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	creds, _ := srv.IssueSession("alice")
	if err := client.Login(ctx, creds); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if status := getStatus(t, client, srv.URL()+authtest.PathApps); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if srv.RefreshCalls() != 0 {
		t.Fatalf("fresh token must not be refreshed, got %d calls", srv.RefreshCalls())
	}

	time.Sleep(2500 * time.Millisecond)

	if status := getStatus(t, client, srv.URL()+authtest.PathApps); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if srv.RefreshCalls() != 1 || srv.Unauthorized() != 0 {
		t.Fatalf("expected one proactive refresh and no 401, got %d and %d", srv.RefreshCalls(), srv.Unauthorized())
	}
}
