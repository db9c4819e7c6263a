package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"judge-chat-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, roomID, authorID int64, body string) (models.Message, error)
	Get(ctx context.Context, messageID int64) (models.Message, error)
	Delete(ctx context.Context, messageID int64) error
	ListByRoom(ctx context.Context, roomID int64) ([]models.Message, error)

	// LatestIDs returns, per requested room, the maximum non-hidden message
	// id, computed in a single grouped query. Rooms without visible messages
	// are absent from the result.
	LatestIDs(ctx context.Context, roomIDs []int64) (map[int64]int64, error)
	GetByIDs(ctx context.Context, messageIDs []int64) ([]models.Message, error)
	LatestID(ctx context.Context, roomID int64) (*int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message in a room.
func (r *MessageRepo) Create(ctx context.Context, roomID, authorID int64, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (room_id, author_id, body) VALUES ($1, $2, $3)
        RETURNING id, room_id, author_id, body, hidden, created_at`, roomID, authorID, body).StructScan(&msg)
	return msg, err
}

// Get retrieves a single message.
func (r *MessageRepo) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, room_id, author_id, body, hidden, created_at FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// Delete removes the message row for good.
func (r *MessageRepo) Delete(ctx context.Context, messageID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// ListByRoom returns the room's visible messages, oldest first.
func (r *MessageRepo) ListByRoom(ctx context.Context, roomID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, room_id, author_id, body, hidden, created_at
        FROM messages WHERE room_id=$1 AND hidden=FALSE ORDER BY id ASC`, roomID)
	return msgs, err
}

// LatestIDs computes MAX(id) per room over non-hidden messages.
func (r *MessageRepo) LatestIDs(ctx context.Context, roomIDs []int64) (map[int64]int64, error) {
	if len(roomIDs) == 0 {
		return map[int64]int64{}, nil
	}
	query, args, err := sqlx.In(`SELECT room_id, MAX(id) AS id FROM messages WHERE room_id IN (?) AND hidden=FALSE GROUP BY room_id`, roomIDs)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int64, len(roomIDs))
	for rows.Next() {
		var roomID, messageID int64
		if err := rows.Scan(&roomID, &messageID); err != nil {
			return nil, err
		}
		out[roomID] = messageID
	}
	return out, rows.Err()
}

// GetByIDs fetches the given messages in one query.
func (r *MessageRepo) GetByIDs(ctx context.Context, messageIDs []int64) ([]models.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, room_id, author_id, body, hidden, created_at FROM messages WHERE id IN (?)`, messageIDs)
	if err != nil {
		return nil, err
	}
	var msgs []models.Message
	err = r.db.SelectContext(ctx, &msgs, r.db.Rebind(query), args...)
	return msgs, err
}

// LatestID returns the newest non-hidden message id of the room, or nil when
// none remain.
func (r *MessageRepo) LatestID(ctx context.Context, roomID int64) (*int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT MAX(id) FROM messages WHERE room_id=$1 AND hidden=FALSE HAVING MAX(id) IS NOT NULL`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

var _ MessageRepository = (*MessageRepo)(nil)
