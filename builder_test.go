package goAuthClient

import (
	"context"
	"net/http"
	"testing"

	"github.com/MrEthical07/goAuthClient/session"
)

func noopRefresher() Refresher {
	return RefresherFunc(func(context.Context, string) (session.Credentials, error) {
		return session.Credentials{AccessToken: "a"}, nil
	})
}

func TestBuilderRequiresEndpointOrRefresher(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without endpoint or refresher")
	}

	client, err := New().WithRefresher(noopRefresher()).Build()
	if err != nil {
		t.Fatalf("Build with refresher failed: %v", err)
	}
	defer client.Close()

	if _, ok := client.store.(*session.MemoryStore); !ok {
		t.Fatalf("expected default memory store, got %T", client.store)
	}
	if client.transport.base != http.DefaultTransport {
		t.Fatal("expected default base transport")
	}
	if client.HTTPClient().Transport != client.Transport() {
		t.Fatal("HTTPClient must use the intercepting transport")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithRefresher(noopRefresher())
	client, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected reused builder to fail")
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refresh.Endpoint = "not a url"
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected invalid endpoint error")
	}

	if _, err := New().WithRefresher(noopRefresher()).WithProactiveRefresh(-1).Build(); err == nil {
		t.Fatal("expected negative proactive window error")
	}
}

func TestBuilderRejectsInterceptingTransports(t *testing.T) {
	first, err := New().WithRefresher(noopRefresher()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer first.Close()

	if _, err := New().WithRefresher(noopRefresher()).WithBaseTransport(first.Transport()).Build(); err == nil {
		t.Fatal("expected intercepting base transport to be refused")
	}
	if _, err := New().WithRefreshEndpoint("http://auth.test/refresh").WithRefreshTransport(first.Transport()).Build(); err == nil {
		t.Fatal("expected intercepting refresh transport to be refused")
	}
}

func TestBuilderSharedCoordinatorConflicts(t *testing.T) {
	store := session.NewMemoryStore()
	coordinator, err := NewRefreshCoordinator(store, noopRefresher(), 0)
	if err != nil {
		t.Fatalf("NewRefreshCoordinator failed: %v", err)
	}

	if _, err := New().WithCoordinator(coordinator).WithRefresher(noopRefresher()).Build(); err == nil {
		t.Fatal("expected refresher and coordinator conflict")
	}
	if _, err := New().WithCoordinator(coordinator).WithStore(session.NewMemoryStore()).Build(); err == nil {
		t.Fatal("expected store mismatch error")
	}

	client, err := New().WithCoordinator(coordinator).WithStore(store).Build()
	if err != nil {
		t.Fatalf("Build with matching store failed: %v", err)
	}
	defer client.Close()
	if client.Coordinator() != coordinator || client.store != store {
		t.Fatal("expected shared coordinator and store")
	}
}

func TestBuilderMetricsToggles(t *testing.T) {
	client, err := New().WithRefresher(noopRefresher()).WithMetricsEnabled(true).WithLatencyHistograms(true).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	if _, err := client.RefreshNow(context.Background()); err == nil {
		t.Fatal("expected refresh without stored token to fail")
	}
	snap := client.MetricsSnapshot()
	if snap.Counters[MetricRefreshNoToken] != 1 || snap.Counters[MetricSessionExpired] != 1 {
		t.Fatalf("unexpected counters: %+v", snap.Counters)
	}
	if h := snap.Histograms[MetricRefreshLatency]; len(h) == 0 {
		t.Fatal("expected latency histogram")
	}
}
