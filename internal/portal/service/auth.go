package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
	"github.com/trialdiary/sponsorportal/pkg/cryptox"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

// MinPasswordLength applies to activation and password changes alike.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrWeakPassword       = errors.New("weak_password")
)

// AuthService handles password login and password changes.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
}

// Login verifies email+password and issues a session token. Every failure
// mode (unknown email, wrong password, not yet activated, deactivated)
// collapses into ErrInvalidCredentials so responses don't leak which
// accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.SessionToken, error) {
	log := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.SessionToken{}, ErrInvalidCredentials
	}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login attempt for unknown email")
			return domain.SessionToken{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user by email", slog.Any("error", err))
		return domain.SessionToken{}, err
	}

	if !user.Activated() {
		log.Info("login attempt for unactivated account", slog.String("user_id", user.ID))
		return domain.SessionToken{}, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login attempt with wrong password", slog.String("user_id", user.ID))
		return domain.SessionToken{}, ErrInvalidCredentials
	}

	// Checked after the password so the two failures are indistinguishable
	// from the outside.
	if !user.IsActive {
		log.Info("login attempt for deactivated account", slog.String("user_id", user.ID))
		return domain.SessionToken{}, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(ctx, user)
	if err != nil {
		return domain.SessionToken{}, err
	}

	log.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
	)
	return token, nil
}

// ChangePassword verifies the current password before accepting the new
// one. A wrong current password maps to ErrInvalidCredentials, a new
// password below policy to ErrWeakPassword.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	log := slogx.FromContext(ctx)

	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		log.Error("failed to fetch user", slog.String("user_id", userID), slog.Any("error", err))
		return err
	}

	if !user.Activated() {
		return ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		log.Info("password change with wrong current password", slog.String("user_id", userID))
		return ErrInvalidCredentials
	}

	newHash, err := cryptox.HashPassword(next)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, newHash); err != nil {
		log.Error("failed to update password hash",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("password changed", slog.String("user_id", userID))
	return nil
}
