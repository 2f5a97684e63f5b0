package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/longtk/giapha/internal/model"
	"github.com/longtk/giapha/internal/repository"
)

// MemberStore is the persistence boundary for thành viên records.
type MemberStore interface {
	Create(ctx context.Context, m *model.Member) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.Member, error)
	Update(ctx context.Context, m *model.Member) error
	Delete(ctx context.Context, id uint64) error
	Search(ctx context.Context, q repository.MemberSearchQuery) ([]model.Member, int64, error)
}

// MemberInput carries the client-supplied member fields.
type MemberInput struct {
	FullName  string
	Gender    string
	BirthDate *time.Time
	DeathDate *time.Time
	FatherID  uint64
	MotherID  uint64
	SpouseID  uint64
	UserID    uint64 // linked account, 0 for none
}

// MemberService enforces the tree-scoped member rules on top of the role
// gate: Members may only edit the record linked to their own account and
// may never delete; nobody outside a tree touches its members except
// Admins.
type MemberService struct {
	members MemberStore
}

func NewMemberService(members MemberStore) *MemberService {
	return &MemberService{members: members}
}

// Create adds a member to a tree.  The route gate already restricts this
// to Admin/Owner; the service re-checks tree scope and relation targets.
func (s *MemberService) Create(ctx context.Context, id Identity, treeID uint64, in MemberInput) (model.Member, error) {
	if err := requireTreeScope(id, treeID); err != nil {
		return model.Member{}, err
	}
	if err := s.validate(ctx, treeID, 0, &in); err != nil {
		return model.Member{}, err
	}

	m := model.Member{
		TreeID:    treeID,
		UserID:    in.UserID,
		FullName:  strings.TrimSpace(in.FullName),
		Gender:    in.Gender,
		BirthDate: in.BirthDate,
		DeathDate: in.DeathDate,
		FatherID:  in.FatherID,
		MotherID:  in.MotherID,
		SpouseID:  in.SpouseID,
		CreatedBy: id.UserID,
	}
	mid, err := s.members.Create(ctx, &m)
	if err != nil {
		return model.Member{}, err
	}
	return s.members.GetByID(ctx, mid)
}

// Get returns a single member, scope-checked against the caller's tree.
func (s *MemberService) Get(ctx context.Context, id Identity, memberID uint64) (model.Member, error) {
	m, err := s.load(ctx, memberID)
	if err != nil {
		return model.Member{}, err
	}
	if err := requireTreeScope(id, m.TreeID); err != nil {
		return model.Member{}, err
	}
	return m, nil
}

// Update rewrites a member record.  Admins and the tree's Owner may edit
// anyone; a Member may only edit the record linked to their own account.
func (s *MemberService) Update(ctx context.Context, id Identity, memberID uint64, in MemberInput) (model.Member, error) {
	m, err := s.load(ctx, memberID)
	if err != nil {
		return model.Member{}, err
	}
	if err := requireTreeScope(id, m.TreeID); err != nil {
		return model.Member{}, err
	}
	if id.Role == model.RoleMember && m.UserID != id.UserID {
		return model.Member{}, newError(KindForbidden, CodeUpdateOtherMember)
	}
	if err := s.validate(ctx, m.TreeID, m.ID, &in); err != nil {
		return model.Member{}, err
	}

	m.FullName = strings.TrimSpace(in.FullName)
	m.Gender = in.Gender
	m.BirthDate = in.BirthDate
	m.DeathDate = in.DeathDate
	m.FatherID = in.FatherID
	m.MotherID = in.MotherID
	m.SpouseID = in.SpouseID
	if err := s.members.Update(ctx, &m); err != nil {
		return model.Member{}, err
	}
	return m, nil
}

// Delete removes a member record.  Members never may, regardless of
// whose record it is; Owners only within their own tree.
func (s *MemberService) Delete(ctx context.Context, id Identity, memberID uint64) error {
	m, err := s.load(ctx, memberID)
	if err != nil {
		return err
	}
	if id.Role == model.RoleMember {
		return newError(KindForbidden, CodeDeleteMember)
	}
	if err := requireTreeScope(id, m.TreeID); err != nil {
		return err
	}
	return s.members.Delete(ctx, m.ID)
}

// Search lists members of a tree with name filter and pagination.
func (s *MemberService) Search(ctx context.Context, id Identity, q repository.MemberSearchQuery) ([]model.Member, int64, error) {
	if err := requireTreeScope(id, q.TreeID); err != nil {
		return nil, 0, err
	}
	return s.members.Search(ctx, q)
}

func (s *MemberService) load(ctx context.Context, memberID uint64) (model.Member, error) {
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Member{}, newError(KindNotFound, CodeNotFound)
		}
		return model.Member{}, err
	}
	return m, nil
}

// validate checks the member fields and that every relation reference
// points at an existing member of the same tree.  selfID is non-zero on
// update so a member cannot reference itself.
func (s *MemberService) validate(ctx context.Context, treeID, selfID uint64, in *MemberInput) error {
	fields := map[string]string{}
	name := strings.TrimSpace(in.FullName)
	if name == "" || len([]rune(name)) > 100 {
		fields["full_name"] = "full name must be 1-100 characters"
	}
	switch in.Gender {
	case "male", "female", "other":
	default:
		fields["gender"] = "gender must be male, female or other"
	}
	if in.BirthDate != nil && in.DeathDate != nil && in.DeathDate.Before(*in.BirthDate) {
		fields["death_date"] = "death date cannot precede birth date"
	}
	if len(fields) > 0 {
		return validationError(fields)
	}

	for _, rel := range []struct {
		field string
		id    uint64
	}{
		{"father_id", in.FatherID},
		{"mother_id", in.MotherID},
		{"spouse_id", in.SpouseID},
	} {
		if rel.id == 0 {
			continue
		}
		if selfID != 0 && rel.id == selfID {
			return validationError(map[string]string{rel.field: "member cannot reference itself"})
		}
		other, err := s.members.GetByID(ctx, rel.id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(KindNotFound, CodeNotFound)
			}
			return err
		}
		if other.TreeID != treeID {
			return newError(KindValidation, CodeRelationOtherTree)
		}
	}
	return nil
}
