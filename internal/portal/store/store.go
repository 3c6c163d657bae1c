package store

import (
	"context"
	"errors"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// deployments, memory for tests and local work) implement this; the driver
// is selected by configuration at process start, never by conditional
// imports.
type Store interface {
	Users() Users

	// ApplyMigrations brings the schema up to date. The memory driver
	// treats this as a no-op.
	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error
}

type Users interface {
	// CreateUser inserts a new portal user (id is provided by the app via
	// ULID). Returns ErrAlreadyExists when the email or linking code
	// collides with an existing row.
	CreateUser(ctx context.Context, u domain.PortalUser) error

	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.PortalUser, error)

	// GetUserByEmail looks up by lowercased email.
	GetUserByEmail(ctx context.Context, email string) (domain.PortalUser, error)

	// ListUsers returns all portal users ordered by creation date
	// (newest first).
	ListUsers(ctx context.Context) ([]domain.PortalUser, error)

	// RedeemLinkingCode atomically sets the password hash and clears the
	// linking code for the user holding it. Exactly one concurrent caller
	// can win; everyone else (and every replay) gets ErrNotFound.
	RedeemLinkingCode(ctx context.Context, code, passwordHash string) (domain.PortalUser, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error

	// SetActive flips the soft-deactivation flag. Users are never
	// physically deleted.
	SetActive(ctx context.Context, userID string, active bool) error
}
