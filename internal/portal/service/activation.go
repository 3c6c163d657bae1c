package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
	"github.com/trialdiary/sponsorportal/pkg/cryptox"
	"github.com/trialdiary/sponsorportal/pkg/linkcode"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

// ErrInvalidCode covers unknown, malformed and already-redeemed linking
// codes alike. Callers cannot tell which it was, so a code can't be
// probed for validity.
var ErrInvalidCode = errors.New("invalid_linking_code")

// ActivationService redeems one-time linking codes.
type ActivationService struct {
	Store store.Store
}

// Redeem exchanges a linking code for a set password. The store clears
// the code atomically, so a code redeems at most once no matter how many
// requests race on it.
func (s *ActivationService) Redeem(ctx context.Context, code, password string) (domain.PortalUser, error) {
	log := slogx.FromContext(ctx)

	code = linkcode.Normalize(code)
	if !linkcode.Valid(code) {
		log.Info("activation attempt with malformed code")
		return domain.PortalUser{}, ErrInvalidCode
	}

	if len(password) < MinPasswordLength {
		return domain.PortalUser{}, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.PortalUser{}, err
	}

	user, err := s.Store.Users().RedeemLinkingCode(ctx, code, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("activation attempt with unknown or spent code")
			return domain.PortalUser{}, ErrInvalidCode
		}
		log.Error("failed to redeem linking code", slog.Any("error", err))
		return domain.PortalUser{}, err
	}

	log.Info("account activated",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)
	return user, nil
}
