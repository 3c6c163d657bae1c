package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
)

type usersRepo struct {
	db *sqlx.DB
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.PortalUser) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO portal_users
			(id, email, name, role, password_hash, linking_code, assigned_sites, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID,
		u.Email,
		u.Name,
		u.Role.String(),
		u.PasswordHash,
		mapStringNull(u.LinkingCode),
		joinSites(u.AssignedSites),
		u.IsActive,
		now,
		now,
	)
	return mapConflict(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.PortalUser, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM portal_users WHERE id = ?
	`, id)
	if err != nil {
		return domain.PortalUser{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.PortalUser, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM portal_users WHERE email = ?
	`, email)
	if err != nil {
		return domain.PortalUser{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.PortalUser, error) {
	var rows []userRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM portal_users ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}

	users := make([]domain.PortalUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, mapUser(row))
	}
	return users, nil
}

// RedeemLinkingCode serializes concurrent redemption attempts through a
// transaction whose UPDATE is guarded on the linking_code column: the
// first committer clears the code, so every later attempt fails the
// rows-affected check and surfaces as ErrNotFound.
func (r *usersRepo) RedeemLinkingCode(
	ctx context.Context,
	code, passwordHash string,
) (domain.PortalUser, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.PortalUser{}, err
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	var row userRow
	err = tx.GetContext(ctx, &row, `
		SELECT * FROM portal_users WHERE linking_code = ?
	`, code)
	if err != nil {
		return domain.PortalUser{}, mapNotFound(err)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE portal_users
		SET password_hash = ?, linking_code = NULL, updated_at = ?
		WHERE id = ? AND linking_code = ?
	`, passwordHash, now, row.ID, code)
	if err != nil {
		return domain.PortalUser{}, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.PortalUser{}, err
	}
	if affected == 0 {
		return domain.PortalUser{}, store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return domain.PortalUser{}, err
	}

	user := mapUser(row)
	user.PasswordHash = passwordHash
	user.LinkingCode = ""
	user.UpdatedAt = now
	return user, nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE portal_users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, newHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE portal_users SET is_active = ?, updated_at = ? WHERE id = ?
	`, active, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
