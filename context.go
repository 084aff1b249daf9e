package goAuthClient

import "context"

type retryGuardKey struct{}

// WithoutRefresh marks ctx so that a 401 on a request carrying it is returned
// as-is instead of starting a refresh. Use it for calls such as the login
// request itself, where a 401 means bad input rather than an expired token.
func WithoutRefresh(ctx context.Context) context.Context {
	return markRetried(ctx)
}

func markRetried(ctx context.Context) context.Context {
	if isRetried(ctx) {
		return ctx
	}
	return context.WithValue(ctx, retryGuardKey{}, true)
}

func isRetried(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	retried, _ := ctx.Value(retryGuardKey{}).(bool)
	return retried
}
