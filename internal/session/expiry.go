package session

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var unverifiedParser = jwt.NewParser()

// tokenExpiry reads the exp claim of a JWT without verifying its signature.
//
// The client cannot verify server tokens; the claim is only used to schedule refreshes.
func tokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// RefreshIfExpiring refreshes the token when it expires within window.
//
// It reports whether a refresh was attempted. Opaque tokens, whose expiry is unknown, are never refreshed here.
func (m *Manager) RefreshIfExpiring(ctx context.Context, window time.Duration) (Result, bool) {
	exp, ok := m.ExpiresAt()
	if !ok || exp.Sub(m.now()) > window {
		return Result{}, false
	}

	m.logger.Debug("token near expiry, refreshing", "expires_at", exp)
	return m.RefreshToken(ctx), true
}
