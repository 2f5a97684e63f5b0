package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/longtk/giapha/internal/model"
)

type MemberRepo struct{ DB *sql.DB }

func NewMemberRepo(db *sql.DB) *MemberRepo { return &MemberRepo{DB: db} }

const memberCols = "id,public_id,tree_id,user_id,full_name,gender,birth_date,death_date,father_id,mother_id,spouse_id,created_by,created_at,updated_at"

// MemberSearchQuery defines filter & pagination parameters for listing
// members of a tree.
type MemberSearchQuery struct {
	TreeID   uint64
	Name     string // substring match on full_name, case-insensitive
	Page     int
	PageSize int
}

// Create inserts a member row, assigning a fresh public UUID.
func (r *MemberRepo) Create(ctx context.Context, m *model.Member) (uint64, error) {
	m.PublicID = uuid.NewString()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO members
			(public_id, tree_id, user_id, full_name, gender, birth_date, death_date, father_id, mother_id, spouse_id, created_by)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		m.PublicID, m.TreeID, nullID(m.UserID), m.FullName, m.Gender,
		m.BirthDate, m.DeathDate, nullID(m.FatherID), nullID(m.MotherID), nullID(m.SpouseID), m.CreatedBy)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a member by numeric id.
func (r *MemberRepo) GetByID(ctx context.Context, id uint64) (model.Member, error) {
	return scanMemberRow(r.DB.QueryRowContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE id=? LIMIT 1", id))
}

// Update rewrites the mutable member fields.
func (r *MemberRepo) Update(ctx context.Context, m *model.Member) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE members SET
			full_name=?, gender=?, birth_date=?, death_date=?, father_id=?, mother_id=?, spouse_id=?
		 WHERE id=?`,
		m.FullName, m.Gender, m.BirthDate, m.DeathDate,
		nullID(m.FatherID), nullID(m.MotherID), nullID(m.SpouseID), m.ID)
	return err
}

// Delete removes a member row.
func (r *MemberRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM members WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Search lists members of a tree with an optional name filter, returning
// the page of rows plus the total match count.
func (r *MemberRepo) Search(ctx context.Context, q MemberSearchQuery) ([]model.Member, int64, error) {
	where := []string{"tree_id=?"}
	args := []any{q.TreeID}

	if q.Name != "" {
		where = append(where, "LOWER(full_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM members WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argsData := append(append([]any{}, args...), q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+memberCols+" FROM members WHERE "+cond+" ORDER BY full_name ASC, id ASC LIMIT ? OFFSET ?",
		argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Member, 0, q.PageSize)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// nullID converts a zero id into SQL NULL so relation columns stay
// nullable instead of pointing at a bogus row 0.
func nullID(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}

func scanMember(s rowScanner) (model.Member, error) {
	var (
		m                                  model.Member
		userID, fatherID, motherID, spouse sql.NullInt64
		birth, death                       sql.NullTime
	)
	err := s.Scan(&m.ID, &m.PublicID, &m.TreeID, &userID, &m.FullName, &m.Gender,
		&birth, &death, &fatherID, &motherID, &spouse, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Member{}, err
	}
	if userID.Valid {
		m.UserID = uint64(userID.Int64)
	}
	if fatherID.Valid {
		m.FatherID = uint64(fatherID.Int64)
	}
	if motherID.Valid {
		m.MotherID = uint64(motherID.Int64)
	}
	if spouse.Valid {
		m.SpouseID = uint64(spouse.Int64)
	}
	if birth.Valid {
		t := birth.Time
		m.BirthDate = &t
	}
	if death.Valid {
		t := death.Time
		m.DeathDate = &t
	}
	return m, nil
}

func scanMemberRow(row *sql.Row) (model.Member, error) {
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return model.Member{}, ErrNotFound
	}
	return m, err
}
