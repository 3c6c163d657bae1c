package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/pkg/jwtx"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

// TokenService mints session tokens for authenticated portal users.
// Sessions are fixed-duration: there is no refresh grant, users log in
// again when the token expires.
type TokenService struct {
	Signer     jwtx.Signer
	Issuer     string
	SessionTTL time.Duration
}

// Issue signs a session token for the given user.
func (s *TokenService) Issue(ctx context.Context, user domain.PortalUser) (domain.SessionToken, error) {
	log := slogx.FromContext(ctx)

	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}

	claims := jwtx.NewSessionClaims(user.ID, user.Role.String(), s.Issuer, ttl, time.Now())

	signed, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign session token",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return domain.SessionToken{}, err
	}

	log.Debug("session token issued",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
		slog.String("jti", claims.ID),
	)

	return domain.SessionToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int64(ttl.Seconds()),
	}, nil
}
