// Package memory is the in-memory store driver. It backs tests and local
// development so nothing has to touch a real database, and is selected by
// configuration like any other driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/store"
)

type Store struct {
	mu    sync.RWMutex
	users map[string]domain.PortalUser // keyed by id
}

func NewStore() *Store {
	return &Store{users: make(map[string]domain.PortalUser)}
}

func (s *Store) Users() store.Users { return &usersRepo{s: s} }

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Ping(ctx context.Context) error { return nil }

type usersRepo struct {
	s *Store
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.PortalUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return store.ErrAlreadyExists
		}
		if u.LinkingCode != "" && existing.LinkingCode == u.LinkingCode {
			return store.ErrAlreadyExists
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.s.users[u.ID] = clone(u)
	return nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.PortalUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.PortalUser{}, store.ErrNotFound
	}
	return clone(u), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.PortalUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return domain.PortalUser{}, store.ErrNotFound
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.PortalUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]domain.PortalUser, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, clone(u))
	}

	// Newest first, matching the sqlite driver's ordering.
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// RedeemLinkingCode holds the store lock for the whole lookup-and-clear,
// so concurrent redemptions of the same code serialize here: one wins,
// the rest see ErrNotFound.
func (r *usersRepo) RedeemLinkingCode(
	ctx context.Context,
	code, passwordHash string,
) (domain.PortalUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, u := range r.s.users {
		if u.LinkingCode != "" && u.LinkingCode == code {
			u.PasswordHash = passwordHash
			u.LinkingCode = ""
			u.UpdatedAt = time.Now().UTC()
			r.s.users[id] = u
			return clone(u), nil
		}
	}
	return domain.PortalUser{}, store.ErrNotFound
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now().UTC()
	r.s.users[userID] = u
	return nil
}

func (r *usersRepo) SetActive(ctx context.Context, userID string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	u.UpdatedAt = time.Now().UTC()
	r.s.users[userID] = u
	return nil
}

// clone copies the record so callers can't mutate stored state through
// the shared slice.
func clone(u domain.PortalUser) domain.PortalUser {
	if u.AssignedSites != nil {
		sites := make([]string, len(u.AssignedSites))
		copy(sites, u.AssignedSites)
		u.AssignedSites = sites
	}
	return u
}
