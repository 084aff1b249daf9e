package goAuthClient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/sirupsen/logrus"
)

var errUnauthorizedReplay = errors.New("replayed request unauthorized")

// SessionExpiredEvent is delivered to the session-expired handler after a
// refresh cycle failed and the credential store was cleared.
type SessionExpiredEvent struct {
	CycleID string
	Err     error
	At      time.Time
}

// Client is an authenticated HTTP client. It is safe for concurrent use after
// [Builder.Build].
//
//	Docs: docs/client.md
type Client struct {
	config      Config
	store       session.Store
	coordinator *RefreshCoordinator
	transport   *transport
	httpClient  *http.Client

	logger    logrus.FieldLogger
	audit     *auditDispatcher
	metrics   *Metrics
	onExpired func(SessionExpiredEvent)

	unsubscribe func()
	closeOnce   sync.Once
}

// Do sends req through the intercepting transport.
//
// Do behaves like (*http.Client).Do. A 401 is answered by at most one refresh
// and one replay; if the refresh fails the original 401 response is returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// HTTPClient returns the *http.Client backed by the intercepting transport.
// Callers must not replace its Transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Transport returns the intercepting http.RoundTripper, for callers that build
// their own *http.Client.
func (c *Client) Transport() http.RoundTripper {
	return c.transport
}

// Coordinator returns the refresh coordinator used by this client.
func (c *Client) Coordinator() *RefreshCoordinator {
	return c.coordinator
}

// Login describes the login operation and its observable behavior.
//
// Login stores a credential pair obtained by the host application. It returns
// ErrInvalidCredentials when either token is empty, or the store error.
func (c *Client) Login(ctx context.Context, creds session.Credentials) error {
	if err := flows.RunLogin(ctx, creds, flows.LoginDeps{Store: c.store}); err != nil {
		if creds.AccessToken == "" || creds.RefreshToken == "" {
			err = errors.Join(ErrInvalidCredentials, err)
		}
		c.emitAudit(ctx, auditEventLogin, false, "", nil, err, nil)
		return err
	}

	c.metricInc(MetricLogin)
	c.emitAudit(ctx, auditEventLogin, true, "", nil, nil, nil)
	return nil
}

// Logout destroys the stored credentials. It is idempotent.
func (c *Client) Logout(ctx context.Context) error {
	if err := flows.RunLogout(ctx, flows.LogoutDeps{Store: c.store}); err != nil {
		c.logger.WithError(err).Warn("goAuthClient: logout could not clear credentials")
		c.emitAudit(ctx, auditEventLogout, false, "", nil, err, nil)
		return err
	}

	c.metricInc(MetricLogout)
	c.emitAudit(ctx, auditEventLogout, true, "", nil, nil, nil)
	return nil
}

// Credentials returns the stored credential pair.
func (c *Client) Credentials(ctx context.Context) (session.Credentials, error) {
	return c.store.Load(ctx)
}

// RefreshNow forces a refresh through the shared single-flight path and
// returns the new access token. A concurrent 401-triggered refresh is joined,
// not duplicated.
func (c *Client) RefreshNow(ctx context.Context) (string, error) {
	return c.coordinator.Refresh(ctx)
}

// MetricsSnapshot returns a point-in-time copy of the client counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Close detaches the client from its coordinator and flushes pending audit
// events. Requests in flight complete normally. Close is idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.audit.Close()
	})
}

func (c *Client) metricInc(id MetricID) {
	c.metrics.Inc(id)
}

/*
====================================
REFRESH OBSERVER
====================================
*/

func (c *Client) refreshStarted(cycleID string) {
	c.metricInc(MetricRefreshStarted)
	c.logger.WithField("cycle_id", cycleID).Debug("goAuthClient: refresh started")
	c.emitAudit(context.Background(), auditEventRefreshStarted, true, cycleID, nil, nil, nil)
}

func (c *Client) refreshQueued(string) {
	c.metricInc(MetricRefreshQueued)
}

func (c *Client) refreshSucceeded(cycleID string, rotated bool, elapsed time.Duration) {
	c.metricInc(MetricRefreshSuccess)
	if rotated {
		c.metricInc(MetricRefreshRotated)
	}
	c.metrics.Observe(MetricRefreshLatency, elapsed)

	c.logger.WithFields(logrus.Fields{
		"cycle_id": cycleID,
		"rotated":  rotated,
		"elapsed":  elapsed,
	}).Debug("goAuthClient: refresh succeeded")

	c.emitAudit(context.Background(), auditEventRefreshSucceeded, true, cycleID, nil, nil, func() map[string]string {
		if rotated {
			return map[string]string{"rotated": "true"}
		}
		return nil
	})
}

func (c *Client) refreshFailed(err *RefreshError, elapsed time.Duration) {
	c.metricInc(MetricRefreshFailure)
	switch err.Kind {
	case RefreshFailureNoToken:
		c.metricInc(MetricRefreshNoToken)
	case RefreshFailureRejected:
		c.metricInc(MetricRefreshRejected)
	case RefreshFailureStore:
		c.metricInc(MetricRefreshStoreError)
	default:
		c.metricInc(MetricRefreshTransportError)
	}
	c.metrics.Observe(MetricRefreshLatency, elapsed)

	c.logger.WithFields(logrus.Fields{
		"cycle_id": err.CycleID,
		"kind":     err.Kind.String(),
		"elapsed":  elapsed,
	}).WithError(err.Err).Warn("goAuthClient: refresh failed, session cleared")

	c.emitAudit(context.Background(), auditEventRefreshFailed, false, err.CycleID, nil, err, func() map[string]string {
		return map[string]string{"kind": err.Kind.String()}
	})

	c.metricInc(MetricSessionExpired)
	c.emitAudit(context.Background(), auditEventSessionExpired, false, err.CycleID, nil, err, nil)

	if c.onExpired != nil {
		c.onExpired(SessionExpiredEvent{
			CycleID: err.CycleID,
			Err:     err,
			At:      time.Now().UTC(),
		})
	}
}

/*
====================================
TRANSPORT OBSERVER
====================================
*/

func (c *Client) storeReadFailed(req *http.Request, err error) {
	c.metricInc(MetricStoreReadFailure)
	c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	}).WithError(err).Warn("goAuthClient: credential store read failed, sending request unauthenticated")
}

func (c *Client) replayUnsupported(req *http.Request) {
	c.metricInc(MetricReplayUnsupported)
	c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	}).Warn("goAuthClient: 401 on a request without GetBody, not replaying")
}

func (c *Client) requestReplayed(req *http.Request, stale bool) {
	c.metricInc(MetricRequestReplayed)
	if stale {
		c.metricInc(MetricStaleTokenReplayed)
	}
	c.emitAudit(req.Context(), auditEventRequestReplayed, true, "", req, nil, func() map[string]string {
		if stale {
			return map[string]string{"stale_token": "true"}
		}
		return nil
	})
}

func (c *Client) retryExhausted(req *http.Request) {
	c.metricInc(MetricRetryExhausted)
	c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"path":   req.URL.Path,
	}).Debug("goAuthClient: replayed request received 401 again")
	c.emitAudit(req.Context(), auditEventRetryExhausted, false, "", req, errUnauthorizedReplay, nil)
}

func (c *Client) proactiveRefreshed(req *http.Request, err error) {
	c.metricInc(MetricProactiveRefresh)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.URL.Path,
		}).WithError(err).Debug("goAuthClient: proactive refresh failed")
	}
}
