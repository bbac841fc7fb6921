package domain

// Role is a named capability granted to a user account.
type Role string

const (
	RoleAdministrador Role = "Administrador"
	RoleEditor        Role = "Editor"
)

// AllRoles contains every role the directory accepts
var AllRoles = []Role{RoleAdministrador, RoleEditor}

// IsValid checks if a role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdministrador, RoleEditor:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// HasRole reports whether roles contains want.
func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// NormalizeRoles drops duplicates while keeping first-seen order. It returns
// ErrInvalidInput for unknown role names.
func NormalizeRoles(roles []Role) ([]Role, error) {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !r.IsValid() {
			return nil, ErrInvalidInput
		}
		if !HasRole(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}
