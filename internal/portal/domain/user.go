package domain

import "time"

// PortalUser is a sponsor-portal account. Accounts are created dormant by
// an admin with a fresh linking code, become loginable once the code is
// redeemed and a password is set, and are only ever soft-deactivated so
// the audit trail stays intact.
type PortalUser struct {
	ID            string
	Email         string // stored lowercased, unique
	Name          string
	Role          Role
	PasswordHash  string   // argon2 encoded; empty until activated
	LinkingCode   string   // one-time activation code; empty once redeemed
	AssignedSites []string // required non-empty for investigators, nil for admins
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Activated reports whether the account has redeemed its linking code and
// set a password.
func (u PortalUser) Activated() bool {
	return u.PasswordHash != ""
}
