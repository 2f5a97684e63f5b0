package service

import (
	"context"
	"errors"
	"log"

	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/repository"
)

// Identity is the resolved request context handed to services by the
// authentication middleware: who the caller is, the role taken from the
// access token, and the family tree they belong to (0 = none).
type Identity struct {
	UserID uint64
	Role   model.Role
	TreeID uint64
}

// TreeStore is the persistence boundary for family trees.
type TreeStore interface {
	Create(ctx context.Context, name string, ownerID uint64) (uint64, error)
	Delete(ctx context.Context, id uint64) error
	GetByID(ctx context.Context, id uint64) (model.FamilyTree, error)
	List(ctx context.Context, page, pageSize int) ([]model.FamilyTree, int64, error)
}

// TreeUserStore is the slice of user persistence the tree service needs.
type TreeUserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetTree(ctx context.Context, id, treeID uint64, role model.Role) error
}

// TreeService implements family-tree creation and membership.  A user
// belongs to at most one tree; creating one makes them its Owner, joining
// one makes them a Member (Admins keep their role either way).
type TreeService struct {
	trees TreeStore
	users TreeUserStore
}

func NewTreeService(trees TreeStore, users TreeUserStore) *TreeService {
	return &TreeService{trees: trees, users: users}
}

// Create registers a new family tree owned by the caller.
func (s *TreeService) Create(ctx context.Context, id Identity, name string) (model.FamilyTree, error) {
	if n := len([]rune(name)); n < 1 || n > 35 {
		return model.FamilyTree{}, validationError(map[string]string{
			"name": "tree name must be 1-35 characters",
		})
	}
	if id.TreeID != 0 {
		return model.FamilyTree{}, newError(KindForbidden, CodeAlreadyInFamily)
	}

	treeID, err := s.trees.Create(ctx, name, id.UserID)
	if err != nil {
		return model.FamilyTree{}, err
	}

	role := model.RoleOwner
	if id.Role == model.RoleAdmin {
		role = model.RoleAdmin
	}
	if err := s.users.SetTree(ctx, id.UserID, treeID, role); err != nil {
		// Undo the insert so a failed attach leaves no orphan tree.
		if derr := s.trees.Delete(ctx, treeID); derr != nil {
			log.Printf("tree: rollback of tree %d failed: %v", treeID, derr)
		}
		return model.FamilyTree{}, err
	}
	return s.trees.GetByID(ctx, treeID)
}

// Join attaches the caller to an existing tree as a Member.
func (s *TreeService) Join(ctx context.Context, id Identity, treeID uint64) (model.FamilyTree, error) {
	if id.TreeID != 0 {
		return model.FamilyTree{}, newError(KindForbidden, CodeAlreadyInFamily)
	}
	t, err := s.trees.GetByID(ctx, treeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.FamilyTree{}, newError(KindNotFound, CodeNotFound)
		}
		return model.FamilyTree{}, err
	}

	role := model.RoleMember
	if id.Role == model.RoleAdmin {
		role = model.RoleAdmin
	}
	if err := s.users.SetTree(ctx, id.UserID, t.ID, role); err != nil {
		return model.FamilyTree{}, err
	}
	return t, nil
}

// Get returns a tree the caller is allowed to see: their own, or any tree
// for Admins.
func (s *TreeService) Get(ctx context.Context, id Identity, treeID uint64) (model.FamilyTree, error) {
	if err := requireTreeScope(id, treeID); err != nil {
		return model.FamilyTree{}, err
	}
	t, err := s.trees.GetByID(ctx, treeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.FamilyTree{}, newError(KindNotFound, CodeNotFound)
		}
		return model.FamilyTree{}, err
	}
	return t, nil
}

// List pages through all trees.  Route-level policy restricts this to
// Admins already; the service trusts the gate.
func (s *TreeService) List(ctx context.Context, page, pageSize int) ([]model.FamilyTree, int64, error) {
	return s.trees.List(ctx, page, pageSize)
}

// requireTreeScope rejects tree-scoped operations for callers outside the
// target tree.  Admins pass unconditionally.  A caller with no tree at
// all gets NOT_IN_FAMILY; a caller in a different tree gets
// CANNOT_VIEW_OTHER_FAMILY.
func requireTreeScope(id Identity, treeID uint64) *Error {
	switch id.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleOwner, model.RoleMember:
		if id.TreeID == 0 {
			return newError(KindForbidden, CodeNotInFamily)
		}
		if id.TreeID != treeID {
			return newError(KindForbidden, CodeViewOtherFamily)
		}
		return nil
	}
	return newError(KindForbidden, CodeAccessDenied)
}
