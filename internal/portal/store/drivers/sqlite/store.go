package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
)

type Store struct {
	db  *sqlx.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() store.Users { return &usersRepo{db: s.db} }

// userRow mirrors the portal_users table.
type userRow struct {
	ID            string         `db:"id"`
	Email         string         `db:"email"`
	Name          string         `db:"name"`
	Role          string         `db:"role"`
	PasswordHash  string         `db:"password_hash"`
	LinkingCode   sql.NullString `db:"linking_code"`
	AssignedSites string         `db:"assigned_sites"`
	IsActive      bool           `db:"is_active"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func mapUser(row userRow) domain.PortalUser {
	return domain.PortalUser{
		ID:            row.ID,
		Email:         row.Email,
		Name:          row.Name,
		Role:          domain.Role(row.Role),
		PasswordHash:  row.PasswordHash,
		LinkingCode:   mapNullString(row.LinkingCode),
		AssignedSites: splitSites(row.AssignedSites),
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// requireRow converts a zero-rows-affected result into ErrNotFound so
// updates against missing ids don't silently succeed.
func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConflict(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// Site lists are stored space-delimited, one column per user.
func splitSites(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func joinSites(sites []string) string {
	return strings.Join(sites, " ")
}
