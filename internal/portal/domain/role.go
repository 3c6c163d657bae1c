package domain

// Role governs which routes and site-scoped data a portal user may access.
// The enumeration is closed at two values for now; admins have implicit
// access to every site, investigators only to their assigned ones.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleInvestigator Role = "investigator"
)

// ParseRole validates a wire-format role string.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleInvestigator:
		return Role(s), true
	}
	return "", false
}

func (r Role) String() string { return string(r) }
