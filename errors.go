package goAuthClient

import (
	"errors"

	"github.com/MrEthical07/goAuthClient/session"
)

var (
	// ErrNoRefreshToken is returned when a refresh is needed but the store holds no refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshRejected is returned when the refresh endpoint answers but does not issue a token.
	ErrRefreshRejected = errors.New("refresh rejected")
	// ErrRefreshTransport is returned when the refresh endpoint cannot be reached in time.
	ErrRefreshTransport = errors.New("refresh transport failure")
	// ErrStoreUnavailable is returned when the credential store cannot be read or written.
	ErrStoreUnavailable = session.ErrStoreUnavailable
	// ErrRefreshAborted is reported to queued requests when the refreshing goroutine panicked.
	ErrRefreshAborted = errors.New("refresh aborted")
	// ErrInvalidCredentials is returned by Login when a token is missing.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// RefreshFailure classifies why a refresh cycle ended without a token.
type RefreshFailure int

const (
	// RefreshFailureTransport covers network errors, timeouts and aborted cycles.
	RefreshFailureTransport RefreshFailure = iota + 1
	// RefreshFailureRejected covers non-2xx answers, success != true and missing access tokens.
	RefreshFailureRejected
	// RefreshFailureNoToken means no refresh token was stored.
	RefreshFailureNoToken
	// RefreshFailureStore means the credential store failed during the cycle.
	RefreshFailureStore
)

func (f RefreshFailure) String() string {
	switch f {
	case RefreshFailureTransport:
		return "transport"
	case RefreshFailureRejected:
		return "rejected"
	case RefreshFailureNoToken:
		return "no_refresh_token"
	case RefreshFailureStore:
		return "store_unavailable"
	default:
		return "unknown"
	}
}

func (f RefreshFailure) sentinel() error {
	switch f {
	case RefreshFailureRejected:
		return ErrRefreshRejected
	case RefreshFailureNoToken:
		return ErrNoRefreshToken
	case RefreshFailureStore:
		return ErrStoreUnavailable
	default:
		return ErrRefreshTransport
	}
}

// RefreshError is the error every request queued on a failed refresh cycle
// observes. It matches its failure sentinel and its cause with [errors.Is].
type RefreshError struct {
	Kind    RefreshFailure
	CycleID string
	Err     error
}

func (e *RefreshError) Error() string {
	msg := "goAuthClient: refresh failed (" + e.Kind.String() + ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the failure sentinel and the underlying cause.
func (e *RefreshError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}
