package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"orgconsole/internal/domain/position"
)

// Token errors
var (
	ErrNoToken      = errors.New("no backend token configured")
	ErrTokenExpired = errors.New("backend token has expired")
)

// Claims are the operator claims the backend puts in its bearer tokens.
type Claims struct {
	Position string `json:"position"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenInfo is what the console needs to know about its operator.
type TokenInfo struct {
	Subject   string
	Position  position.Position
	ExpiresAt time.Time
}

// Expired reports whether the token has an expiry at or before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Actor labels the operator for the audit trail.
func (t TokenInfo) Actor() string {
	switch {
	case t.Subject != "" && t.Position != "":
		return t.Subject + " (" + t.Position.Label() + ")"
	case t.Subject != "":
		return t.Subject
	case t.Position != "":
		return t.Position.Label()
	}
	return "unknown"
}

// InspectToken reads the claims of a bearer token without verifying its signature.
// The backend verifies every request; the console only uses the claims to gate
// finance actions early and to fail fast on expiry.
// PRE: raw is a JWT, optionally prefixed with "Bearer "
// POST: Returns the decoded claims or an error if raw is empty or not a JWT
func InspectToken(raw string) (TokenInfo, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return TokenInfo{}, ErrNoToken
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("inspect token: %w", err)
	}
	info := TokenInfo{
		Subject:  claims.Subject,
		Position: position.Parse(claims.Position),
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
