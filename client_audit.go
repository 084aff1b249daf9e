package goAuthClient

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	auditEventRefreshStarted   = "refresh_started"
	auditEventRefreshSucceeded = "refresh_succeeded"
	auditEventRefreshFailed    = "refresh_failed"
	auditEventSessionExpired   = "session_expired"
	auditEventRequestReplayed  = "request_replayed"
	auditEventRetryExhausted   = "retry_exhausted"
	auditEventLogin            = "login"
	auditEventLogout           = "logout"
)

// AuditErrorCode is the stable error vocabulary of [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrNoRefreshToken   AuditErrorCode = "no_refresh_token"
	auditErrRefreshRejected  AuditErrorCode = "refresh_rejected"
	auditErrRefreshTransport AuditErrorCode = "refresh_transport"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrInvalidInput     AuditErrorCode = "invalid_credentials"
	auditErrUnauthorized     AuditErrorCode = "unauthorized"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (c *Client) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	cycleID string,
	req *http.Request,
	err error,
	metadataBuilder func() map[string]string,
) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		CycleID:   cycleID,
		Success:   success,
		Metadata:  metadata,
	}
	if req != nil {
		event.Method = req.Method
		if req.URL != nil {
			event.Host = req.URL.Host
			event.Path = req.URL.Path
		}
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	c.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrNoRefreshToken):
		return auditErrNoRefreshToken
	case errors.Is(err, ErrRefreshRejected):
		return auditErrRefreshRejected
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	case errors.Is(err, ErrRefreshTransport),
		errors.Is(err, ErrRefreshAborted),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrRefreshTransport
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidInput
	case errors.Is(err, errUnauthorizedReplay):
		return auditErrUnauthorized
	default:
		return auditErrInternal
	}
}
