package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trialdiary/sponsorportal/pkg/cryptox"
)

// DefaultSessionTTL is the default lifetime for portal session tokens.
// Compliance guidance wants fixed-duration sessions with re-login after
// expiry, so there is no refresh mechanism.
const DefaultSessionTTL = 60 * time.Minute

// Claims are the session-token claims. Keep changes additive so older
// tokens stay parseable until they expire.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the portal role the user held when the session was issued.
	// Authorization re-reads the stored role on every request; this claim
	// is informational for clients.
	Role string `json:"role,omitempty"`
}

// NewSessionClaims builds minimally-correct claims for a portal session.
func NewSessionClaims(subject, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role: role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	return cryptox.MustGenerateToken(cryptox.TokenSize128)
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf).
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
