package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"judge-chat-service/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomRepository abstracts room and membership persistence.
type RoomRepository interface {
	CreateWithMembers(ctx context.Context, userA, userB int64, now time.Time) (models.Room, error)
	Get(ctx context.Context, roomID int64) (models.Room, error)
	Delete(ctx context.Context, roomID int64) error
	SetLastMessageID(ctx context.Context, roomID int64, messageID *int64) error

	MemberIDs(ctx context.Context, roomID int64) ([]int64, error)
	MembershipsByRooms(ctx context.Context, roomIDs []int64) ([]models.Membership, error)
	Membership(ctx context.Context, userID, roomID int64) (models.Membership, error)

	RoomIDsOrdered(ctx context.Context, userID int64) ([]int64, error)
	CountRooms(ctx context.Context, userID int64) (int, error)
	OldestRoomID(ctx context.Context, userID, excludeRoomID int64) (int64, error)

	MarkSeen(ctx context.Context, userID, roomID int64, now time.Time) error
	IncrementUnread(ctx context.Context, roomID, exceptUserID int64) error
	DecrementUnreadBefore(ctx context.Context, roomID int64, before time.Time) ([]int64, error)
	UnreadRoomIDs(ctx context.Context, userID int64) ([]int64, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// CreateWithMembers inserts a room and its two memberships in one
// transaction, so a room is never observable without its members.
func (r *RoomRepo) CreateWithMembers(ctx context.Context, userA, userB int64, now time.Time) (models.Room, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Room{}, err
	}
	defer tx.Rollback()

	var room models.Room
	if err := tx.QueryRowxContext(ctx, `INSERT INTO rooms (last_message_id) VALUES (NULL) RETURNING id, last_message_id`).StructScan(&room); err != nil {
		return models.Room{}, err
	}
	for _, userID := range []int64{userA, userB} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO memberships (user_id, room_id, last_seen_at, unread_count) VALUES ($1, $2, $3, 0)`, userID, room.ID, now); err != nil {
			return models.Room{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Room{}, err
	}
	return room, nil
}

// Get fetches a room by id.
func (r *RoomRepo) Get(ctx context.Context, roomID int64) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT id, last_message_id FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// Delete removes a room; messages and memberships go with it via cascade.
func (r *RoomRepo) Delete(ctx context.Context, roomID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
	return err
}

// SetLastMessageID persists the last-message pointer; nil clears it.
func (r *RoomRepo) SetLastMessageID(ctx context.Context, roomID int64, messageID *int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE rooms SET last_message_id=$2 WHERE id=$1`, roomID, messageID)
	return err
}

// MemberIDs returns the user ids belonging to the room.
func (r *RoomRepo) MemberIDs(ctx context.Context, roomID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM memberships WHERE room_id=$1 ORDER BY user_id`, roomID)
	return ids, err
}

// MembershipsByRooms returns all membership rows for the given rooms in one
// query; callers group by room themselves.
func (r *RoomRepo) MembershipsByRooms(ctx context.Context, roomIDs []int64) ([]models.Membership, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT user_id, room_id, last_seen_at, unread_count FROM memberships WHERE room_id IN (?) ORDER BY room_id, user_id`, roomIDs)
	if err != nil {
		return nil, err
	}
	var rows []models.Membership
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...)
	return rows, err
}

// Membership fetches a single membership row.
func (r *RoomRepo) Membership(ctx context.Context, userID, roomID int64) (models.Membership, error) {
	var m models.Membership
	err := r.db.GetContext(ctx, &m, `SELECT user_id, room_id, last_seen_at, unread_count FROM memberships WHERE user_id=$1 AND room_id=$2`, userID, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Membership{}, ErrRoomNotFound
	}
	return m, err
}

// RoomIDsOrdered returns the user's room ids newest-activity first: by the
// room's last_message_id descending, rooms without messages last, ties broken
// by room id descending.
func (r *RoomRepo) RoomIDsOrdered(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT r.id FROM rooms r
        JOIN memberships m ON m.room_id = r.id
        WHERE m.user_id=$1
        ORDER BY r.last_message_id DESC NULLS LAST, r.id DESC`, userID)
	return ids, err
}

// CountRooms returns the user's active room count.
func (r *RoomRepo) CountRooms(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM memberships WHERE user_id=$1`, userID)
	return count, err
}

// OldestRoomID picks the eviction candidate: ascending last_message_id with
// NULLs first (a room that never saw a message is oldest), ties broken by
// ascending room id. excludeRoomID shields one room, so the room whose
// creation triggered the eviction is never its own victim; 0 shields nothing.
func (r *RoomRepo) OldestRoomID(ctx context.Context, userID, excludeRoomID int64) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT r.id FROM rooms r
        JOIN memberships m ON m.room_id = r.id
        WHERE m.user_id=$1 AND r.id<>$2
        ORDER BY r.last_message_id ASC NULLS FIRST, r.id ASC
        LIMIT 1`, userID, excludeRoomID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRoomNotFound
	}
	return id, err
}

// MarkSeen stamps the membership and clears its unread counter.
func (r *RoomRepo) MarkSeen(ctx context.Context, userID, roomID int64, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE memberships SET last_seen_at=$3, unread_count=0 WHERE user_id=$1 AND room_id=$2`, userID, roomID, now)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// IncrementUnread bumps unread_count for every member except the author.
func (r *RoomRepo) IncrementUnread(ctx context.Context, roomID, exceptUserID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE memberships SET unread_count = unread_count + 1 WHERE room_id=$1 AND user_id<>$2`, roomID, exceptUserID)
	return err
}

// DecrementUnreadBefore decrements, floored at zero, the unread counter of
// every member whose last_seen_at predates the given time. Returns the
// affected user ids so the caller can dirty exactly those caches.
func (r *RoomRepo) DecrementUnreadBefore(ctx context.Context, roomID int64, before time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `UPDATE memberships
        SET unread_count = unread_count - 1
        WHERE room_id=$1 AND last_seen_at < $2 AND unread_count > 0
        RETURNING user_id`, roomID, before)
	return ids, err
}

// UnreadRoomIDs returns the user's rooms holding unread messages.
func (r *RoomRepo) UnreadRoomIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids, `SELECT room_id FROM memberships WHERE user_id=$1 AND unread_count > 0`, userID)
	return ids, err
}

var _ RoomRepository = (*RoomRepo)(nil)
