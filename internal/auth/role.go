// Package auth implements session and role resolution for the admin area.
// It orchestrates three collaborators: the identity transport (external
// provider sessions), the role store (the profiles table) and a durable
// advisory role cache.  The resolver owns all auth state for one browsing
// context; everything else reads snapshots.
package auth

// Role is the privilege tier gating admin UI access.
type Role string

const (
	RoleReader Role = "reader"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// ParseRole validates a raw role value from the store or the cache.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleReader, RoleEditor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Privileged reports whether the role grants editorial capability.  A
// privileged role is never silently downgraded by a transient role-store
// failure.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleEditor
}
