package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthClient/session"
)

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Store session.Store
}

// RunLogin persists a fresh credential pair. Both tokens are required.
func RunLogin(ctx context.Context, creds session.Credentials, deps LoginDeps) error {
	if creds.AccessToken == "" {
		return errors.New("access token required")
	}
	if creds.RefreshToken == "" {
		return errors.New("refresh token required")
	}
	return deps.Store.Save(ctx, creds)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store session.Store
}

// RunLogout destroys the stored credentials.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	return deps.Store.Clear(ctx)
}
