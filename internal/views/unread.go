package views

import (
	"context"
	"time"

	"judge-chat-service/internal/cache"
	"judge-chat-service/internal/repositories"
)

// UnreadBoxes serves the cached unread box counter: the number of the user's
// rooms holding unread messages, minus rooms hidden by the block filter. The
// underlying unread_count rows are untouched by blocking; only the
// aggregation excludes them.
type UnreadBoxes struct {
	acc *cache.Accessor[int64, int]
}

// NewUnreadBoxes wires the unread-box accessor.
func NewUnreadBoxes(backend cache.Backend, ttl time.Duration, rooms repositories.RoomRepository, ignores *Ignores) *UnreadBoxes {
	loader := func(ctx context.Context, userID int64) (int, error) {
		unreadRooms, err := rooms.UnreadRoomIDs(ctx, userID)
		if err != nil {
			return 0, err
		}
		if len(unreadRooms) == 0 {
			return 0, nil
		}
		hidden, err := ignores.IgnoredRoomIDs(ctx, userID)
		if err != nil {
			return 0, err
		}
		hiddenSet := make(map[int64]bool, len(hidden))
		for _, roomID := range hidden {
			hiddenSet[roomID] = true
		}
		count := 0
		for _, roomID := range unreadRooms {
			if !hiddenSet[roomID] {
				count++
			}
		}
		return count, nil
	}
	u := &UnreadBoxes{acc: cache.NewAccessor(backend, prefixUnreadBox, ttl, loader, nil)}
	ignores.AttachUnread(u)
	return u
}

// Count returns the user's unread box counter.
func (u *UnreadBoxes) Count(ctx context.Context, userID int64) (int, error) {
	return u.acc.Get(ctx, userID)
}

// Dirty drops the cached counter; called whenever any of the user's
// unread_count rows or their ignore set changes.
func (u *UnreadBoxes) Dirty(ctx context.Context, userID int64) {
	u.acc.Dirty(ctx, userID)
}
