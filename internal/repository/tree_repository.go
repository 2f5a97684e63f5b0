package repository

import (
	"context"
	"database/sql"

	"github.com/longtk/giapha/internal/model"
)

type TreeRepo struct{ DB *sql.DB }

func NewTreeRepo(db *sql.DB) *TreeRepo { return &TreeRepo{DB: db} }

// Create inserts a family tree and returns its ID.
func (r *TreeRepo) Create(ctx context.Context, name string, ownerID uint64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO family_trees (name, owner_id) VALUES (?,?)", name, ownerID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Delete removes a tree row.  Used to undo a creation whose owner
// attachment failed.
func (r *TreeRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM family_trees WHERE id=?", id)
	return err
}

// GetByID fetches a tree by id.
func (r *TreeRepo) GetByID(ctx context.Context, id uint64) (model.FamilyTree, error) {
	var t model.FamilyTree
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,owner_id,created_at,updated_at FROM family_trees WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.FamilyTree{}, ErrNotFound
	}
	return t, err
}

// List returns trees page by page, newest first, for the admin screen.
func (r *TreeRepo) List(ctx context.Context, page, pageSize int) ([]model.FamilyTree, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM family_trees").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,owner_id,created_at,updated_at FROM family_trees ORDER BY id DESC LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.FamilyTree, 0, pageSize)
	for rows.Next() {
		var t model.FamilyTree
		if err := rows.Scan(&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}
