package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// IgnoreRepository persists the directed block relation.
type IgnoreRepository interface {
	Add(ctx context.Context, userID, targetID int64) error
	Remove(ctx context.Context, userID, targetID int64) error
	ListTargets(ctx context.Context, userID int64) ([]int64, error)
}

// IgnoreRepo is a sqlx implementation of IgnoreRepository.
type IgnoreRepo struct {
	db *sqlx.DB
}

// NewIgnoreRepo constructs an IgnoreRepo.
func NewIgnoreRepo(db *sqlx.DB) *IgnoreRepo {
	return &IgnoreRepo{db: db}
}

// Add records the block. Duplicate and self rows are rejected upstream by
// validation; ON CONFLICT keeps a race from failing the statement.
func (r *IgnoreRepo) Add(ctx context.Context, userID, targetID int64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO ignores (user_id, target_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, targetID)
	return err
}

// Remove deletes the block row.
func (r *IgnoreRepo) Remove(ctx context.Context, userID, targetID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ignores WHERE user_id=$1 AND target_id=$2`, userID, targetID)
	return err
}

// ListTargets returns the ids the user has blocked.
func (r *IgnoreRepo) ListTargets(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT target_id FROM ignores WHERE user_id=$1 ORDER BY target_id`, userID)
	return ids, err
}

var _ IgnoreRepository = (*IgnoreRepo)(nil)
