package goAuthClient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/flows"
	"github.com/MrEthical07/goAuthClient/session"
	"github.com/google/uuid"
)

// refreshObserver receives coordinator lifecycle notifications. Calls happen
// outside the coordinator lock, on the goroutine that drove the event.
type refreshObserver interface {
	refreshStarted(cycleID string)
	refreshQueued(cycleID string)
	refreshSucceeded(cycleID string, rotated bool, elapsed time.Duration)
	refreshFailed(err *RefreshError, elapsed time.Duration)
}

type refreshOutcome struct {
	token string
	err   error
}

// RefreshCoordinator guarantees at most one outbound refresh call per
// credential store. The first caller of [RefreshCoordinator.Refresh] leads the
// cycle; callers arriving while it is in flight are queued and resolved in
// arrival order with the leader's outcome.
//
// One coordinator may be shared by several [Client] values built over the same
// store with [Builder.WithCoordinator].
type RefreshCoordinator struct {
	store     session.Store
	refresher Refresher
	timeout   time.Duration

	mu       sync.Mutex
	inFlight bool
	cycleID  string
	waiters  []chan refreshOutcome

	obsMu     sync.RWMutex
	observers map[uint64]refreshObserver
	nextObsID uint64

	cycles atomic.Uint64
	warn   func(string, ...any)
}

// NewRefreshCoordinator describes the newrefreshcoordinator operation and its observable behavior.
//
// NewRefreshCoordinator returns an error when store or refresher is nil. A timeout <= 0 uses the
// default refresh timeout.
func NewRefreshCoordinator(store session.Store, refresher Refresher, timeout time.Duration) (*RefreshCoordinator, error) {
	if store == nil {
		return nil, errors.New("credential store required")
	}
	if refresher == nil {
		return nil, errors.New("refresher required")
	}
	if timeout <= 0 {
		timeout = DefaultConfig().Refresh.Timeout
	}

	return &RefreshCoordinator{
		store:     store,
		refresher: refresher,
		timeout:   timeout,
		observers: make(map[uint64]refreshObserver),
	}, nil
}

// Store returns the credential store the coordinator refreshes.
func (c *RefreshCoordinator) Store() session.Store {
	return c.store
}

// Refresh returns a fresh access token, starting a refresh cycle if none is in
// flight or joining the current one otherwise.
//
// The cycle itself runs detached from ctx and is bounded by the coordinator
// timeout, so one caller giving up never fails the cycle for the others. A
// queued caller whose ctx ends stops waiting and gets ctx.Err().
//
// Every failed cycle clears the store and returns a *RefreshError.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.inFlight {
		ch := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, ch)
		cycleID := c.cycleID
		c.mu.Unlock()

		c.each(func(o refreshObserver) { o.refreshQueued(cycleID) })

		select {
		case out := <-ch:
			return out.token, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.inFlight = true
	cycleID := uuid.NewString()
	c.cycleID = cycleID
	c.mu.Unlock()

	return c.lead(ctx, cycleID)
}

func (c *RefreshCoordinator) lead(ctx context.Context, cycleID string) (string, error) {
	c.cycles.Add(1)
	started := time.Now()
	c.each(func(o refreshObserver) { o.refreshStarted(cycleID) })

	out := refreshOutcome{err: &RefreshError{Kind: RefreshFailureTransport, CycleID: cycleID, Err: ErrRefreshAborted}}
	var rotated bool
	defer func() {
		c.finish(out)

		elapsed := time.Since(started)
		var refreshErr *RefreshError
		if errors.As(out.err, &refreshErr) {
			c.each(func(o refreshObserver) { o.refreshFailed(refreshErr, elapsed) })
			return
		}
		c.each(func(o refreshObserver) { o.refreshSucceeded(cycleID, rotated, elapsed) })
	}()

	res := flows.RunRefresh(context.WithoutCancel(ctx), flows.RefreshDeps{
		Store:      c.store,
		Exchanger:  c.refresher,
		Timeout:    c.timeout,
		IsRejected: isRefreshRejected,
		Warn:       c.warn,
	})

	if res.Failure != flows.RefreshFailureNone {
		out = refreshOutcome{err: &RefreshError{
			Kind:    failureFromFlow(res.Failure),
			CycleID: cycleID,
			Err:     res.Err,
		}}
		return "", out.err
	}

	rotated = res.Rotated
	out = refreshOutcome{token: res.Credentials.AccessToken}
	return out.token, nil
}

// finish clears the in-flight flag and drains the queue under one lock, so a
// caller arriving afterwards always starts a new cycle instead of joining a
// finished one.
func (c *RefreshCoordinator) finish(out refreshOutcome) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.cycleID = ""
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- out
	}
}

// Cycles returns how many refresh cycles this coordinator has led.
func (c *RefreshCoordinator) Cycles() uint64 {
	return c.cycles.Load()
}

// InFlight reports whether a refresh cycle is currently outbound.
func (c *RefreshCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Pending returns how many callers are queued on the current cycle.
func (c *RefreshCoordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *RefreshCoordinator) subscribe(o refreshObserver) func() {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = o
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			delete(c.observers, id)
			c.obsMu.Unlock()
		})
	}
}

func (c *RefreshCoordinator) each(fn func(refreshObserver)) {
	c.obsMu.RLock()
	observers := make([]refreshObserver, 0, len(c.observers))
	for _, o := range c.observers {
		observers = append(observers, o)
	}
	c.obsMu.RUnlock()

	for _, o := range observers {
		fn(o)
	}
}

func failureFromFlow(kind flows.RefreshFailureKind) RefreshFailure {
	switch kind {
	case flows.RefreshFailureNoToken:
		return RefreshFailureNoToken
	case flows.RefreshFailureRejected:
		return RefreshFailureRejected
	case flows.RefreshFailureStore:
		return RefreshFailureStore
	default:
		return RefreshFailureTransport
	}
}
