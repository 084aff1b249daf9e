//go:build integration
// +build integration

package test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

func newIntegrationStore(t *testing.T, rdb redis.UniversalClient, sessionID string) *session.RedisStore {
	t.Helper()

	store, err := session.NewRedisStore(rdb, "gac", sessionID, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	return store
}

func newIntegrationServer(t *testing.T, cfg authtest.Config) *authtest.Server {
	t.Helper()

	srv, err := authtest.NewServer(cfg)
	if err != nil {
		t.Fatalf("authtest.NewServer failed: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func newIntegrationClient(t *testing.T, srv *authtest.Server, store session.Store) *goAuthClient.Client {
	t.Helper()

	client, err := goAuthClient.New().
		WithRefreshEndpoint(srv.RefreshURL()).
		WithStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func getStatus(t *testing.T, client *goAuthClient.Client, url string) int {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode
}
