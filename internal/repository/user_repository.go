package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/longtk/giapha/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,email,full_name,password_digest,role,tree_id,email_verified,is_active,created_at,updated_at"

// Create inserts a user and returns its ID.  The email is normalized
// before insert; a duplicate maps to ErrEmailExists (MySQL error 1062).
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, full_name, password_digest, role) VALUES (?,?,?,?)",
		email, u.FullName, u.PasswordDigest, string(u.Role))
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePassword replaces the stored digest.  Callers verify the user
// exists first; MySQL reports zero affected rows when the new value equals
// the old one, so row counts are not used to detect a missing user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, digest string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_digest=? WHERE id=?", digest, id)
	return err
}

// UpdateRole changes a user's role code.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=? WHERE id=?", string(role), id)
	return err
}

// SetTree attaches a user to a family tree and assigns the role they hold
// inside it (Owner for the creator, Member for joiners; Admins keep
// their role).
func (r *UserRepo) SetTree(ctx context.Context, id, treeID uint64, role model.Role) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET tree_id=?, role=? WHERE id=?", treeID, string(role), id)
	return err
}

// MarkVerified records that the email-verify token was redeemed.
func (r *UserRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET email_verified=1 WHERE id=?", id)
	return err
}

// List returns users page by page, newest first, for the admin screen.
func (r *UserRepo) List(ctx context.Context, page, pageSize int) ([]model.User, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users ORDER BY id DESC LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.User, 0, pageSize)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(s rowScanner) (model.User, error) {
	var (
		u      model.User
		role   string
		treeID sql.NullInt64
	)
	err := s.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordDigest, &role,
		&treeID, &u.EmailVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if treeID.Valid {
		u.TreeID = uint64(treeID.Int64)
	}
	return u, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}
