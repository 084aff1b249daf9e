package goAuthClient

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/sirupsen/logrus"
)

// Builder defines a public type used by goAuthClient APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	store            session.Store
	baseTransport    http.RoundTripper
	refreshTransport http.RoundTripper
	refresher        Refresher
	coordinator      *RefreshCoordinator

	logger    logrus.FieldLogger
	auditSink AuditSink
	onExpired func(SessionExpiredEvent)

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with [DefaultConfig].
// New does not mutate shared global state and can be used concurrently.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRefreshEndpoint sets the URL the default [HTTPRefresher] posts to.
func (b *Builder) WithRefreshEndpoint(endpoint string) *Builder {
	b.config.Refresh.Endpoint = endpoint
	return b
}

// WithStore sets the credential store. Defaults to a [session.MemoryStore].
func (b *Builder) WithStore(store session.Store) *Builder {
	b.store = store
	return b
}

// WithBaseTransport sets the transport that carries application requests.
// Defaults to http.DefaultTransport.
func (b *Builder) WithBaseTransport(rt http.RoundTripper) *Builder {
	b.baseTransport = rt
	return b
}

// WithRefreshTransport sets the bare transport the default [HTTPRefresher]
// uses. It must not be an intercepting transport.
func (b *Builder) WithRefreshTransport(rt http.RoundTripper) *Builder {
	b.refreshTransport = rt
	return b
}

// WithRefresher replaces the default [HTTPRefresher].
func (b *Builder) WithRefresher(r Refresher) *Builder {
	b.refresher = r
	return b
}

// WithCoordinator shares an existing coordinator, and with it its store and
// refresher, so several clients run a single refresh between them.
func (b *Builder) WithCoordinator(c *RefreshCoordinator) *Builder {
	b.coordinator = c
	return b
}

// WithLogger sets the structured logger. Defaults to a logger that discards.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the audit sink. Audit must also be enabled in [Config].
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSessionExpiredHandler registers fn to run once per failed refresh
// cycle, after every queued request has been rejected.
func (b *Builder) WithSessionExpiredHandler(fn func(SessionExpiredEvent)) *Builder {
	b.onExpired = fn
	return b
}

// WithProactiveRefresh refreshes before sending when the stored JWT access
// token expires within window. Zero disables it.
func (b *Builder) WithProactiveRefresh(window time.Duration) *Builder {
	b.config.Refresh.ProactiveWindow = window
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when the configuration is invalid, no refresh
// endpoint or refresher is available, or the builder was already used.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	// -------- COORDINATOR --------
	coordinator := b.coordinator
	if coordinator != nil {
		if b.refresher != nil {
			return nil, errors.New("WithRefresher cannot be combined with WithCoordinator")
		}
		if b.store != nil && b.store != coordinator.Store() {
			return nil, errors.New("store does not match the shared coordinator store")
		}
	} else {
		store := b.store
		if store == nil {
			store = session.NewMemoryStore()
		}

		refresher := b.refresher
		if refresher == nil {
			if cfg.Refresh.Endpoint == "" {
				return nil, errors.New("refresh endpoint or refresher required")
			}
			hr, err := NewHTTPRefresher(cfg.Refresh, b.refreshTransport)
			if err != nil {
				return nil, err
			}
			refresher = hr
		}

		c, err := NewRefreshCoordinator(store, refresher, cfg.Refresh.Timeout)
		if err != nil {
			return nil, err
		}
		c.warn = func(msg string, args ...any) {
			logger.Warnf(msg, args...)
		}
		coordinator = c
	}

	// -------- TRANSPORT --------
	base := b.baseTransport
	if base == nil {
		base = http.DefaultTransport
	}
	if _, ok := base.(*transport); ok {
		return nil, errors.New("base transport must not be an intercepting transport")
	}

	client := &Client{
		config:      cfg,
		store:       coordinator.Store(),
		coordinator: coordinator,
		logger:      logger,
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:     NewMetrics(cfg.Metrics),
		onExpired:   b.onExpired,
	}

	client.transport = &transport{
		base:            base,
		store:           client.store,
		coordinator:     coordinator,
		observer:        client,
		inspector:       jwt.NewInspector(),
		headerName:      cfg.Auth.HeaderName,
		scheme:          cfg.Auth.Scheme,
		proactiveWindow: cfg.Refresh.ProactiveWindow,
		maxBuffered:     cfg.Replay.MaxBufferedBody,
		now:             time.Now,
	}
	client.httpClient = &http.Client{Transport: client.transport}
	client.unsubscribe = coordinator.subscribe(client)

	b.built = true

	return client, nil
}
