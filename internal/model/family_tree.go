package model

import "time"

// FamilyTree (gia phả) groups member records under a common lineage.  It
// is created once by its founding owner and referenced by member and user
// records afterwards.  The name is limited to 1–35 characters at the
// service layer.
type FamilyTree struct {
	ID        uint64    // family_trees.id
	Name      string    // family_trees.name
	OwnerID   uint64    // family_trees.owner_id (founding user)
	CreatedAt time.Time // family_trees.created_at
	UpdatedAt time.Time // family_trees.updated_at
}
