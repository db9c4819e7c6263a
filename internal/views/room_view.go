// Package views holds the cached derived views over the chat store: per-room
// aggregates, per-user room orderings, block filtering and the unread box
// counter. Each view is an explicit cache accessor with its own key prefix;
// lifecycle code dirties exactly the keys a mutation affects.
package views

import (
	"context"
	"time"

	"judge-chat-service/internal/cache"
	"judge-chat-service/internal/models"
	"judge-chat-service/internal/repositories"
)

// Cache key prefixes, one per accessor kind.
const (
	prefixRoomView     = "rv"
	prefixRoomList     = "rl"
	prefixIgnoredUsers = "ig"
	prefixIgnoredRooms = "igr"
	prefixUnreadBox    = "ub"
)

// RoomViews serves the cached per-room aggregate: member ids plus the last
// visible message. A single get is a batch of one, so bulk prefetch and
// point lookups always agree.
type RoomViews struct {
	acc   *cache.Accessor[int64, models.RoomView]
	rooms repositories.RoomRepository
	msgs  repositories.MessageRepository
}

// NewRoomViews wires the aggregate accessor.
func NewRoomViews(backend cache.Backend, ttl time.Duration, rooms repositories.RoomRepository, msgs repositories.MessageRepository) *RoomViews {
	v := &RoomViews{rooms: rooms, msgs: msgs}
	v.acc = cache.NewAccessor(backend, prefixRoomView, ttl, v.loadOne, v.loadMany)
	return v
}

// Get returns the aggregate for one room.
func (v *RoomViews) Get(ctx context.Context, roomID int64) (models.RoomView, error) {
	return v.acc.Get(ctx, roomID)
}

// GetMany returns aggregates for all rooms, resolving every cache miss with
// three queries total regardless of how many rooms missed.
func (v *RoomViews) GetMany(ctx context.Context, roomIDs []int64) (map[int64]models.RoomView, error) {
	return v.acc.GetMany(ctx, roomIDs)
}

// Dirty drops the cached aggregate for the room.
func (v *RoomViews) Dirty(ctx context.Context, roomID int64) {
	v.acc.Dirty(ctx, roomID)
}

func (v *RoomViews) loadOne(ctx context.Context, roomID int64) (models.RoomView, error) {
	views, err := v.loadMany(ctx, []int64{roomID})
	if err != nil {
		return models.RoomView{}, err
	}
	return views[roomID], nil
}

// loadMany recomputes aggregates for all requested rooms: one grouped query
// for the winning message ids, one fetch for exactly those messages, one
// query for all membership rows.
func (v *RoomViews) loadMany(ctx context.Context, roomIDs []int64) (map[int64]models.RoomView, error) {
	latest, err := v.msgs.LatestIDs(ctx, roomIDs)
	if err != nil {
		return nil, err
	}

	winnerIDs := make([]int64, 0, len(latest))
	for _, messageID := range latest {
		winnerIDs = append(winnerIDs, messageID)
	}
	winners, err := v.msgs.GetByIDs(ctx, winnerIDs)
	if err != nil {
		return nil, err
	}
	messageByID := make(map[int64]models.Message, len(winners))
	for _, msg := range winners {
		messageByID[msg.ID] = msg
	}

	memberships, err := v.rooms.MembershipsByRooms(ctx, roomIDs)
	if err != nil {
		return nil, err
	}
	membersByRoom := make(map[int64][]int64, len(roomIDs))
	for _, m := range memberships {
		membersByRoom[m.RoomID] = append(membersByRoom[m.RoomID], m.UserID)
	}

	out := make(map[int64]models.RoomView, len(roomIDs))
	for _, roomID := range roomIDs {
		view := models.RoomView{MemberIDs: membersByRoom[roomID]}
		if messageID, ok := latest[roomID]; ok {
			if msg, found := messageByID[messageID]; found {
				created := msg.CreatedAt
				view.LastMessageID = msg.ID
				view.LastMessageBody = msg.Body
				view.LastMessageTime = &created
			}
		}
		out[roomID] = view
	}
	return out, nil
}
