package goAuthClient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/session"
)

// transportObserver receives per-request events from the intercepting transport.
type transportObserver interface {
	storeReadFailed(req *http.Request, err error)
	replayUnsupported(req *http.Request)
	requestReplayed(req *http.Request, stale bool)
	retryExhausted(req *http.Request)
	proactiveRefreshed(req *http.Request, err error)
}

// transport is the intercepting http.RoundTripper. Request side: attach the
// stored access token. Response side: turn a 401 into at most one replay.
type transport struct {
	base        http.RoundTripper
	store       session.Store
	coordinator *RefreshCoordinator
	observer    transportObserver
	inspector   *jwt.Inspector

	headerName      string
	scheme          string
	proactiveWindow time.Duration
	maxBuffered     int64
	now             func() time.Time
}

// RoundTrip implements http.RoundTripper. It never modifies req.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	token := t.currentToken(req)

	if t.proactiveWindow > 0 && token != "" && !isRetried(ctx) &&
		t.inspector.ExpiresWithin(token, t.proactiveWindow, t.now()) {
		fresh, err := t.coordinator.Refresh(ctx)
		t.observer.proactiveRefreshed(req, err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			// A failed refresh already ended the session; its 401 must not start another cycle.
			ctx = markRetried(ctx)
			token = t.currentToken(req)
		} else {
			token = fresh
		}
	}

	resp, err := t.base.RoundTrip(t.authorize(ctx, req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || isRetried(ctx) {
		return resp, err
	}

	if !replayable(req) {
		t.observer.replayUnsupported(req)
		return resp, nil
	}

	resp = t.bufferResponse(resp)

	next, stale, err := t.nextToken(ctx, req, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			resp.Body.Close()
			return nil, ctxErr
		}
		return resp, nil
	}

	replay, err := t.cloneForReplay(req, next)
	if err != nil {
		return resp, nil
	}
	resp.Body.Close()

	t.observer.requestReplayed(req, stale)
	retryResp, err := t.base.RoundTrip(replay)
	if err == nil && retryResp.StatusCode == http.StatusUnauthorized {
		t.observer.retryExhausted(req)
	}
	return retryResp, err
}

func (t *transport) currentToken(req *http.Request) string {
	creds, err := t.store.Load(req.Context())
	if err != nil {
		t.observer.storeReadFailed(req, err)
		return ""
	}
	return creds.AccessToken
}

// nextToken picks the token for the replay. A stored token that differs from
// the one the request carried was written by a cycle that finished after the
// request was sent, so it is used without a new refresh.
func (t *transport) nextToken(ctx context.Context, req *http.Request, sent string) (string, bool, error) {
	if stored := t.currentToken(req); stored != "" && stored != sent {
		return stored, true, nil
	}
	token, err := t.coordinator.Refresh(ctx)
	return token, false, err
}

func (t *transport) authorize(ctx context.Context, req *http.Request, token string) *http.Request {
	out := req.Clone(ctx)
	if token != "" {
		out.Header.Set(t.headerName, t.headerValue(token))
	}
	return out
}

func (t *transport) headerValue(token string) string {
	if t.scheme == "" {
		return token
	}
	return t.scheme + " " + token
}

func (t *transport) cloneForReplay(req *http.Request, token string) (*http.Request, error) {
	replay := t.authorize(markRetried(req.Context()), req, token)
	if req.Body == nil || req.Body == http.NoBody {
		return replay, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	replay.Body = body
	return replay, nil
}

// bufferResponse reads up to maxBuffered bytes of the 401 body so the
// connection can be reused while the request waits. The rest, if any, stays
// on the wire behind the buffered prefix.
func (t *transport) bufferResponse(resp *http.Response) *http.Response {
	if resp.Body == nil || resp.Body == http.NoBody {
		return resp
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBuffered))
	if err != nil && !errors.Is(err, io.EOF) {
		resp.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf), errReader{err}), Closer: resp.Body}
		return resp
	}
	if int64(len(buf)) < t.maxBuffered {
		resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(buf))
		return resp
	}
	resp.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(buf), resp.Body), Closer: resp.Body}
	return resp
}

func replayable(req *http.Request) bool {
	if req.Body == nil || req.Body == http.NoBody {
		return true
	}
	return req.GetBody != nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
