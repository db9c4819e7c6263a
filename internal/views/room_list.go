package views

import (
	"context"
	"time"

	"judge-chat-service/internal/cache"
	"judge-chat-service/internal/repositories"
)

// RoomLists serves the cached per-user room ordering: last_message_id
// descending, rooms without messages last. The list must be dirtied whenever
// a room the user belongs to appears, disappears or changes its last-message
// pointer.
type RoomLists struct {
	acc *cache.Accessor[int64, []int64]
}

// NewRoomLists wires the room-list accessor.
func NewRoomLists(backend cache.Backend, ttl time.Duration, rooms repositories.RoomRepository) *RoomLists {
	return &RoomLists{
		acc: cache.NewAccessor(backend, prefixRoomList, ttl, func(ctx context.Context, userID int64) ([]int64, error) {
			return rooms.RoomIDsOrdered(ctx, userID)
		}, nil),
	}
}

// Get returns the user's ordered room ids.
func (l *RoomLists) Get(ctx context.Context, userID int64) ([]int64, error) {
	return l.acc.Get(ctx, userID)
}

// Dirty drops the cached list for the user.
func (l *RoomLists) Dirty(ctx context.Context, userID int64) {
	l.acc.Dirty(ctx, userID)
}
