package session

// Storage keys used by every [Store] implementation.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Credentials is the opaque token pair issued at login and rotated on refresh.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether neither token is present.
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// WithRotation returns the pair that should be persisted after a refresh
// produced next. A refresh response that omits the refresh token keeps the
// current one.
func (c Credentials) WithRotation(next Credentials) Credentials {
	out := Credentials{
		AccessToken:  next.AccessToken,
		RefreshToken: next.RefreshToken,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = c.RefreshToken
	}
	return out
}
