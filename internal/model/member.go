package model

import "time"

// Member is a thành viên record inside a family tree: a person in the
// lineage, optionally linked to an application user account (UserID) and
// to other members through father/mother/spouse references.  All relation
// references must point at members of the same tree.
//
// PublicID is a UUID exposed to clients instead of the numeric key.
// Pointer fields are nullable columns.
type Member struct {
	ID        uint64     // members.id
	PublicID  string     // members.public_id (UUID)
	TreeID    uint64     // members.tree_id
	UserID    uint64     // members.user_id (0 = not linked to an account)
	FullName  string     // members.full_name
	Gender    string     // members.gender ("male", "female", "other")
	BirthDate *time.Time // members.birth_date (nullable)
	DeathDate *time.Time // members.death_date (nullable)
	FatherID  uint64     // members.father_id (0 = unknown)
	MotherID  uint64     // members.mother_id (0 = unknown)
	SpouseID  uint64     // members.spouse_id (0 = none)
	CreatedBy uint64     // members.created_by (user id)
	CreatedAt time.Time  // members.created_at
	UpdatedAt time.Time  // members.updated_at
}
