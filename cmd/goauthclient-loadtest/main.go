package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/authtest"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	cfg := defaultLoadConfig()

	var (
		configPath = flag.String("config", "", "optional YAML config file")
		envFile    = flag.String("env", ".env", "optional env file")
	)
	flag.IntVar(&cfg.Clients, "clients", cfg.Clients, "clients sharing one coordinator")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent workers")
	flag.IntVar(&cfg.Requests, "requests", cfg.Requests, "total requests")
	flag.Float64Var(&cfg.RPS, "rps", cfg.RPS, "request rate limit; 0 is unlimited")
	flag.DurationVar(&cfg.ExpireEvery, "expire-every", cfg.ExpireEvery, "interval between forced access-token expiries")
	flag.DurationVar(&cfg.RefreshLag, "refresh-lag", cfg.RefreshLag, "artificial refresh endpoint latency")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "credential store: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address; if empty, REDIS_ADDR env or miniredis is used")
	flag.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "redis key prefix")
	flag.BoolVar(&cfg.Rotate, "rotate", cfg.Rotate, "rotate refresh tokens on every refresh")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus level")
	flag.Parse()

	if err := loadConfigFile(*configPath, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := applyEnv(*envFile, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	res, err := run(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Error("load test failed")
		os.Exit(1)
	}

	fmt.Println("---- results ----")
	printStats("requests", res.stats)
	fmt.Printf("expiries=%d refresh_calls=%d unauthorized=%d session_expired=%d\n",
		res.expiries, res.refreshCalls, res.unauthorized, res.sessionExpired)

	// Each expiry must cost at most one refresh, plus the one already outstanding.
	if res.refreshCalls > res.expiries+1 {
		logger.WithFields(logrus.Fields{
			"expiries":      res.expiries,
			"refresh_calls": res.refreshCalls,
		}).Error("more refresh calls than expiries")
		os.Exit(1)
	}
}

type runResult struct {
	stats          phaseStats
	expiries       int64
	refreshCalls   int64
	unauthorized   int64
	sessionExpired int64
}

func run(ctx context.Context, cfg loadConfig, logger logrus.FieldLogger) (runResult, error) {
	srv, err := authtest.NewServer(authtest.Config{RotateRefreshTokens: cfg.Rotate})
	if err != nil {
		return runResult{}, err
	}
	defer srv.Close()
	srv.SetRefreshDelay(cfg.RefreshLag)

	store, cleanup, err := openStore(cfg, logger)
	if err != nil {
		return runResult{}, err
	}
	defer cleanup()

	var sessionExpired atomic.Int64
	onExpired := func(ev goAuthClient.SessionExpiredEvent) {
		sessionExpired.Add(1)
		logger.WithField("cycle_id", ev.CycleID).WithError(ev.Err).Warn("session expired during load test")
	}

	clients := make([]*goAuthClient.Client, 0, cfg.Clients)
	defer func() {
		for _, c := range clients {
			c.Close()
		}
	}()

	first, err := goAuthClient.New().
		WithRefreshEndpoint(srv.RefreshURL()).
		WithStore(store).
		WithLogger(logger).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		WithSessionExpiredHandler(onExpired).
		Build()
	if err != nil {
		return runResult{}, err
	}
	clients = append(clients, first)
	for i := 1; i < cfg.Clients; i++ {
		c, err := goAuthClient.New().
			WithCoordinator(first.Coordinator()).
			WithLogger(logger).
			WithMetricsEnabled(true).
			Build()
		if err != nil {
			return runResult{}, err
		}
		clients = append(clients, c)
	}

	creds, err := srv.IssueSession("loadtest")
	if err != nil {
		return runResult{}, err
	}
	if err := first.Login(ctx, creds); err != nil {
		return runResult{}, err
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Workers)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var expiries atomic.Int64
	go func() {
		ticker := time.NewTicker(cfg.ExpireEvery)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				srv.ExpireAll()
				expiries.Add(1)
			}
		}
	}()

	var (
		cursor    int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, cfg.Requests)
		failures  int64
	)

	logger.WithFields(logrus.Fields{
		"clients": cfg.Clients,
		"workers": cfg.Workers,
		"store":   cfg.Store,
	}).Info("starting load test")

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for w := 0; w < cfg.Workers; w++ {
		worker := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			client := clients[worker%len(clients)]
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= cfg.Requests {
					return nil
				}
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return err
					}
				}

				path := authtest.PathApps
				if r.Intn(4) == 0 {
					path = fmt.Sprintf("%s/app-%d", authtest.PathApps, r.Intn(3)+1)
				}

				t0 := time.Now()
				status, err := get(gctx, client, srv.URL()+path)
				d := time.Since(t0)
				if err != nil || status != http.StatusOK {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return runResult{}, err
	}
	total := time.Since(start)
	stop()

	return runResult{
		stats:          computeStats(total, latencies, failures),
		expiries:       expiries.Load(),
		refreshCalls:   srv.RefreshCalls(),
		unauthorized:   srv.Unauthorized(),
		sessionExpired: sessionExpired.Load(),
	}, nil
}

func get(ctx context.Context, client *goAuthClient.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode, nil
}

func openStore(cfg loadConfig, logger logrus.FieldLogger) (session.Store, func(), error) {
	if cfg.Store == "memory" {
		return session.NewMemoryStore(), func() {}, nil
	}

	var (
		addr    = cfg.RedisAddr
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		logger.WithField("addr", addr).Info("using miniredis")
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		logger.WithField("addr", addr).Info("using redis")
	}

	store, err := session.NewRedisStore(client, cfg.Prefix, "loadtest", time.Hour)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
