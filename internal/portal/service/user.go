package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
	"github.com/trialdiary/sponsorportal/pkg/idx"
	"github.com/trialdiary/sponsorportal/pkg/linkcode"
	"github.com/trialdiary/sponsorportal/pkg/slogx"
)

var (
	ErrInvalidUserRequest = errors.New("invalid_user_request")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrEmailTaken         = errors.New("email_taken")
	ErrSitesRequired      = errors.New("sites_required")
	ErrUserNotFound       = errors.New("user_not_found")
)

// codeRetries bounds the regenerate-on-collision loop when inserting a
// fresh linking code. With ~8.5e14 possible codes a single collision is
// already freakish; two in a row means the RNG is broken.
const codeRetries = 3

// UserService covers the admin-facing account lifecycle: provisioning
// dormant accounts with linking codes, listing, and soft (de)activation.
type UserService struct {
	Store store.Store
}

// Create provisions a dormant account and mints its one-time linking code.
// The account cannot log in until the code is redeemed; the code is
// returned exactly once, on this call, for the admin to hand over
// out-of-band.
func (s *UserService) Create(
	ctx context.Context,
	email, name string,
	role domain.Role,
	assignedSites []string,
) (domain.PortalUser, error) {
	log := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" || !strings.Contains(email, "@") {
		return domain.PortalUser{}, ErrInvalidUserRequest
	}

	if _, ok := domain.ParseRole(role.String()); !ok {
		return domain.PortalUser{}, ErrInvalidRole
	}

	// Investigators are site-scoped; an investigator with no sites could
	// never see any data. Admins get implicit all-site access instead.
	switch role {
	case domain.RoleInvestigator:
		if len(assignedSites) == 0 {
			return domain.PortalUser{}, ErrSitesRequired
		}
	case domain.RoleAdmin:
		assignedSites = nil
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		log.Warn("account creation with already-registered email")
		return domain.PortalUser{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to check email availability", slog.Any("error", err))
		return domain.PortalUser{}, err
	}

	var user domain.PortalUser
	for attempt := 0; ; attempt++ {
		code, err := linkcode.New()
		if err != nil {
			log.Error("failed to generate linking code", slog.Any("error", err))
			return domain.PortalUser{}, err
		}

		user = domain.PortalUser{
			ID:            idx.New().String(),
			Email:         email,
			Name:          name,
			Role:          role,
			LinkingCode:   code,
			AssignedSites: assignedSites,
			IsActive:      true,
		}

		err = s.Store.Users().CreateUser(ctx, user)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrAlreadyExists) && attempt < codeRetries {
			// Either the email raced in since the precheck or the code
			// collided. Retrying with a fresh code resolves the latter;
			// the former fails again and falls through below.
			continue
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.PortalUser{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return domain.PortalUser{}, err
	}

	log.Info("portal account provisioned",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role.String()),
		slog.Int("assigned_sites", len(user.AssignedSites)),
	)
	return user, nil
}

// List returns every portal account, newest first.
func (s *UserService) List(ctx context.Context) ([]domain.PortalUser, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list users", slog.Any("error", err))
		return nil, err
	}
	return users, nil
}

// GetByID fetches a single account.
func (s *UserService) GetByID(ctx context.Context, id string) (domain.PortalUser, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PortalUser{}, ErrUserNotFound
		}
		slogx.FromContext(ctx).Error("failed to fetch user",
			slog.String("user_id", id),
			slog.Any("error", err),
		)
		return domain.PortalUser{}, err
	}
	return user, nil
}

// SetActive soft-(de)activates an account. Deactivation takes effect on
// the next request: the gateway re-reads the flag per request, so any
// outstanding session tokens stop working immediately.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	log := slogx.FromContext(ctx)

	err := s.Store.Users().SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		log.Error("failed to update active flag",
			slog.String("user_id", id),
			slog.Any("error", err),
		)
		return err
	}

	log.Info("account active flag updated",
		slog.String("user_id", id),
		slog.Bool("active", active),
	)
	return nil
}
