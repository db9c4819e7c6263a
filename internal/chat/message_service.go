package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"judge-chat-service/internal/apperr"
	"judge-chat-service/internal/models"
	"judge-chat-service/internal/repositories"
	"judge-chat-service/internal/views"
)

// Broadcaster is the realtime fan-out collaborator. Publishing is
// fire-and-forget and happens only after the store mutation and its cache
// invalidations are done.
type Broadcaster interface {
	BroadcastMessage(roomID int64, msg models.Message)
	BroadcastDeletion(roomID, messageID int64)
}

// MessageService manages the message lifecycle: create and hard delete, with
// last-message pointer and unread accounting.
type MessageService struct {
	rooms  repositories.RoomRepository
	msgs   repositories.MessageRepository
	views  *views.RoomViews
	lists  *views.RoomLists
	unread *views.UnreadBoxes
	hub    Broadcaster
	events EventPublisher
	logger zerolog.Logger
}

// NewMessageService builds a MessageService.
func NewMessageService(rooms repositories.RoomRepository, msgs repositories.MessageRepository, roomViews *views.RoomViews, lists *views.RoomLists, unread *views.UnreadBoxes, hub Broadcaster, events EventPublisher, logger zerolog.Logger) *MessageService {
	return &MessageService{
		rooms:  rooms,
		msgs:   msgs,
		views:  roomViews,
		lists:  lists,
		unread: unread,
		hub:    hub,
		events: events,
		logger: logger,
	}
}

// Create trims and persists a message, moves the room's last-message
// pointer, bumps every other member's unread counter and broadcasts.
func (s *MessageService) Create(ctx context.Context, authorID, roomID int64, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, apperr.Validation("message body is empty")
	}
	if len(body) > models.MaxMessageLen {
		return models.Message{}, apperr.Validation("message body too long")
	}

	if _, err := s.rooms.Get(ctx, roomID); err != nil {
		return models.Message{}, roomErr(err)
	}
	members, err := s.rooms.MemberIDs(ctx, roomID)
	if err != nil {
		return models.Message{}, err
	}
	if !contains(members, authorID) {
		return models.Message{}, apperr.PermissionDenied("not a room member")
	}

	msg, err := s.msgs.Create(ctx, roomID, authorID, body)
	if err != nil {
		return models.Message{}, err
	}

	if err := s.rooms.SetLastMessageID(ctx, roomID, &msg.ID); err != nil {
		return models.Message{}, err
	}
	s.views.Dirty(ctx, roomID)
	for _, member := range members {
		s.lists.Dirty(ctx, member)
	}

	if err := s.rooms.IncrementUnread(ctx, roomID, authorID); err != nil {
		return models.Message{}, err
	}
	for _, member := range members {
		if member != authorID {
			s.unread.Dirty(ctx, member)
		}
	}

	s.hub.BroadcastMessage(roomID, msg)
	if s.events != nil {
		_ = s.events.Publish(ctx, "chat.message.created", msg)
	}
	return msg, nil
}

// Delete hard-deletes a message. Only the author or a staff member may
// delete; on refusal the message is left untouched. The room's last-message
// pointer is recomputed from the remaining messages, and members who had not
// yet seen the message get their unread counter decremented, floored at zero.
func (s *MessageService) Delete(ctx context.Context, requesterID int64, staff bool, messageID int64) error {
	msg, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return messageErr(err)
	}
	if msg.AuthorID != requesterID && !staff {
		return apperr.PermissionDenied("only the author or staff may delete a message")
	}

	if err := s.msgs.Delete(ctx, messageID); err != nil {
		return messageErr(err)
	}

	if msg.RoomID == nil {
		return nil
	}
	roomID := *msg.RoomID

	latest, err := s.msgs.LatestID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.rooms.SetLastMessageID(ctx, roomID, latest); err != nil {
		return err
	}
	s.views.Dirty(ctx, roomID)

	affected, err := s.rooms.DecrementUnreadBefore(ctx, roomID, msg.CreatedAt)
	if err != nil {
		return err
	}
	members, err := s.rooms.MemberIDs(ctx, roomID)
	if err != nil {
		return err
	}
	for _, member := range members {
		s.lists.Dirty(ctx, member)
		s.unread.Dirty(ctx, member)
	}
	s.logger.Debug().Int64("message_id", messageID).Int64("room_id", roomID).Ints64("unread_decremented", affected).Msg("message deleted")

	s.hub.BroadcastDeletion(roomID, messageID)
	if s.events != nil {
		_ = s.events.Publish(ctx, "chat.message.deleted", map[string]any{
			"room_id":    roomID,
			"message_id": messageID,
		})
	}
	return nil
}

// History returns the room's visible messages, oldest first, for a member.
func (s *MessageService) History(ctx context.Context, userID, roomID int64) ([]models.Message, error) {
	if _, err := s.rooms.Get(ctx, roomID); err != nil {
		return nil, roomErr(err)
	}
	members, err := s.rooms.MemberIDs(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !contains(members, userID) {
		return nil, apperr.PermissionDenied("not a room member")
	}
	return s.msgs.ListByRoom(ctx, roomID)
}

// MarkSeen stamps the membership and clears its unread counter.
func (s *MessageService) MarkSeen(ctx context.Context, userID, roomID int64) error {
	if err := s.rooms.MarkSeen(ctx, userID, roomID, time.Now()); err != nil {
		return roomErr(err)
	}
	s.unread.Dirty(ctx, userID)
	return nil
}

func roomErr(err error) error {
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return apperr.NotFound("room not found")
	}
	return err
}

func messageErr(err error) error {
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return apperr.NotFound("message not found")
	}
	return err
}

func contains(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
