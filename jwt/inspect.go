package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Inspector reads claims from tokens without verifying them. The zero value
// is ready to use and safe for concurrent use.
type Inspector struct {
	parser *jwt.Parser
}

// NewInspector returns an [Inspector].
func NewInspector() *Inspector {
	return &Inspector{parser: jwt.NewParser()}
}

// ExpiresAt returns the exp claim of token. ok is false for opaque tokens
// and for JWTs without exp.
func (i *Inspector) ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	parser := i.parser
	if parser == nil {
		parser = jwt.NewParser()
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresWithin reports whether token expires before now+window. Tokens
// without a readable exp never do.
func (i *Inspector) ExpiresWithin(token string, window time.Duration, now time.Time) bool {
	if window <= 0 {
		return false
	}
	exp, ok := i.ExpiresAt(token)
	if !ok {
		return false
	}
	return exp.Before(now.Add(window))
}
