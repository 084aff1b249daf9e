package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureStore
	RefreshFailureNoToken
	RefreshFailureRejected
	RefreshFailureTransport
)

// RefreshResult carries either the persisted credentials or failure metadata.
type RefreshResult struct {
	Failure     RefreshFailureKind
	Err         error
	ClearErr    error
	Credentials session.Credentials
	Rotated     bool
}

// RefreshExchanger trades a refresh token for a new credential pair.
type RefreshExchanger interface {
	Refresh(ctx context.Context, refreshToken string) (session.Credentials, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Store     session.Store
	Exchanger RefreshExchanger
	Timeout   time.Duration
	// IsRejected reports whether an exchange error means the server refused
	// the refresh token. Anything else is a transport failure.
	IsRejected func(error) bool
	Warn       func(string, ...any)
}

// ErrEmptyAccessToken is returned when an exchange succeeds without an access token.
var ErrEmptyAccessToken = errors.New("refresh response carried no access token")

// RunRefresh loads the refresh token, exchanges it and persists the result.
// Every failure clears the store before returning.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	current, err := deps.Store.Load(ctx)
	if err != nil {
		return fail(ctx, deps, RefreshFailureStore, err)
	}
	if current.RefreshToken == "" {
		return fail(ctx, deps, RefreshFailureNoToken, nil)
	}

	exchangeCtx := ctx
	if deps.Timeout > 0 {
		var cancel context.CancelFunc
		exchangeCtx, cancel = context.WithTimeout(ctx, deps.Timeout)
		defer cancel()
	}

	next, err := deps.Exchanger.Refresh(exchangeCtx, current.RefreshToken)
	if err != nil {
		if deps.IsRejected != nil && deps.IsRejected(err) {
			return fail(ctx, deps, RefreshFailureRejected, err)
		}
		return fail(ctx, deps, RefreshFailureTransport, err)
	}
	if next.AccessToken == "" {
		return fail(ctx, deps, RefreshFailureRejected, ErrEmptyAccessToken)
	}

	merged := current.WithRotation(next)
	if err := deps.Store.Save(ctx, merged); err != nil {
		return fail(ctx, deps, RefreshFailureStore, err)
	}

	return RefreshResult{
		Failure:     RefreshFailureNone,
		Credentials: merged,
		Rotated:     merged.RefreshToken != current.RefreshToken,
	}
}

func fail(ctx context.Context, deps RefreshDeps, kind RefreshFailureKind, err error) RefreshResult {
	res := RefreshResult{Failure: kind, Err: err}
	if clearErr := deps.Store.Clear(ctx); clearErr != nil {
		res.ClearErr = clearErr
		if deps.Warn != nil {
			deps.Warn("goAuthClient: clearing credentials after failed refresh failed")
		}
	}
	return res
}
