// Package chat implements the room and message lifecycle managers. Every
// store mutation is followed immediately by the cache invalidation it
// implies, and broadcast happens only after both; a concurrent reader can see
// a briefly stale view but never a permanently wrong one.
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"judge-chat-service/internal/apperr"
	"judge-chat-service/internal/models"
	"judge-chat-service/internal/observability"
	"judge-chat-service/internal/repositories"
	"judge-chat-service/internal/views"
)

// EventPublisher fans lifecycle events out to the rest of the platform,
// fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// RoomService manages the room lifecycle: get-or-create between two users
// and the per-user room cap with eviction.
type RoomService struct {
	rooms   repositories.RoomRepository
	views   *views.RoomViews
	lists   *views.RoomLists
	ignores *views.Ignores
	unread  *views.UnreadBoxes
	events  EventPublisher
	cap     int
	logger  zerolog.Logger
}

// NewRoomService builds a RoomService.
func NewRoomService(rooms repositories.RoomRepository, roomViews *views.RoomViews, lists *views.RoomLists, ignores *views.Ignores, unread *views.UnreadBoxes, events EventPublisher, roomCap int, logger zerolog.Logger) *RoomService {
	return &RoomService{
		rooms:   rooms,
		views:   roomViews,
		lists:   lists,
		ignores: ignores,
		unread:  unread,
		events:  events,
		cap:     roomCap,
		logger:  logger,
	}
}

// GetOrCreate returns the existing room shared by the two users, or creates
// one. A plain get never triggers eviction; creation enforces the cap for
// the initiating user only.
func (s *RoomService) GetOrCreate(ctx context.Context, userA, userB int64) (models.Room, bool, error) {
	if userA == userB {
		return models.Room{}, false, apperr.Validation("cannot open a room with yourself")
	}

	listA, err := s.lists.Get(ctx, userA)
	if err != nil {
		return models.Room{}, false, err
	}
	listB, err := s.lists.Get(ctx, userB)
	if err != nil {
		return models.Room{}, false, err
	}
	setB := make(map[int64]bool, len(listB))
	for _, roomID := range listB {
		setB[roomID] = true
	}
	for _, roomID := range listA {
		if setB[roomID] {
			room, err := s.rooms.Get(ctx, roomID)
			if err != nil {
				return models.Room{}, false, err
			}
			return room, false, nil
		}
	}

	room, err := s.rooms.CreateWithMembers(ctx, userA, userB, time.Now())
	if err != nil {
		return models.Room{}, false, err
	}
	s.views.Dirty(ctx, room.ID)
	for _, userID := range []int64{userA, userB} {
		s.lists.Dirty(ctx, userID)
		s.ignores.DirtyRooms(ctx, userID)
	}

	// The new room has a null last-message pointer and would sort as the
	// oldest; shield it so it cannot be the victim of its own creation.
	if err := s.enforceCap(ctx, userA, room.ID); err != nil {
		return models.Room{}, false, err
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, "chat.room.created", map[string]any{
			"room_id": room.ID,
			"members": []int64{userA, userB},
		})
	}
	return room, true, nil
}

// EnforceCap evicts the user's oldest rooms until the count fits the cap.
// Oldest means ascending last_message_id with NULLs first, ties broken by
// ascending room id. Deletion cascades to messages and memberships, so every
// other participant's caches are dirtied too.
func (s *RoomService) EnforceCap(ctx context.Context, userID int64) error {
	return s.enforceCap(ctx, userID, 0)
}

func (s *RoomService) enforceCap(ctx context.Context, userID, keepRoomID int64) error {
	for {
		count, err := s.rooms.CountRooms(ctx, userID)
		if err != nil {
			return err
		}
		if count <= s.cap {
			return nil
		}

		roomID, err := s.rooms.OldestRoomID(ctx, userID, keepRoomID)
		if err != nil {
			return err
		}
		members, err := s.rooms.MemberIDs(ctx, roomID)
		if err != nil {
			return err
		}
		if err := s.rooms.Delete(ctx, roomID); err != nil {
			return err
		}
		s.views.Dirty(ctx, roomID)
		for _, member := range members {
			s.lists.Dirty(ctx, member)
			s.ignores.DirtyRooms(ctx, member)
			s.unread.Dirty(ctx, member)
		}

		observability.IncRoomEviction()
		s.logger.Info().Int64("user_id", userID).Int64("room_id", roomID).Msg("room evicted")
		if s.events != nil {
			_ = s.events.Publish(ctx, "chat.room.evicted", map[string]any{
				"room_id": roomID,
				"user_id": userID,
			})
		}
	}
}
