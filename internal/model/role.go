package model

// Role is the closed set of access roles a user can hold.  The values are
// short opaque codes persisted in the `users` table and embedded in access
// tokens; they are part of the stored data format and must not be changed
// without a data migration.
type Role string

const (
	RoleAdmin  Role = "LTK01" // full access to every family tree
	RoleOwner  Role = "LTK02" // head of the family tree they created
	RoleMember Role = "LTK03" // regular member of a single family tree
)

// Valid reports whether r is one of the known role codes.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleMember:
		return true
	}
	return false
}
