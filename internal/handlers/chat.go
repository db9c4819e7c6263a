package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"judge-chat-service/internal/middleware"
	"judge-chat-service/internal/models"
)

// RoomService is the room lifecycle surface the handler consumes.
type RoomService interface {
	GetOrCreate(ctx context.Context, userA, userB int64) (models.Room, bool, error)
}

// MessageService is the message lifecycle surface the handler consumes.
type MessageService interface {
	Create(ctx context.Context, authorID, roomID int64, body string) (models.Message, error)
	Delete(ctx context.Context, requesterID int64, staff bool, messageID int64) error
	History(ctx context.Context, userID, roomID int64) ([]models.Message, error)
	MarkSeen(ctx context.Context, userID, roomID int64) error
}

// RoomLister serves the per-user ordered room ids.
type RoomLister interface {
	Get(ctx context.Context, userID int64) ([]int64, error)
}

// RoomViewer serves per-room aggregates in bulk.
type RoomViewer interface {
	GetMany(ctx context.Context, roomIDs []int64) (map[int64]models.RoomView, error)
}

// UnreadCounter serves the unread box counter.
type UnreadCounter interface {
	Count(ctx context.Context, userID int64) (int, error)
}

// ChatHandler manages the chat endpoints.
type ChatHandler struct {
	rooms    RoomService
	messages MessageService
	lists    RoomLister
	views    RoomViewer
	unread   UnreadCounter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(rooms RoomService, messages MessageService, lists RoomLister, views RoomViewer, unread UnreadCounter) *ChatHandler {
	return &ChatHandler{
		rooms:    rooms,
		messages: messages,
		lists:    lists,
		views:    views,
		unread:   unread,
	}
}

// ListRooms returns the user's rooms, newest activity first, with their
// aggregate views prefetched in one batch.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	roomIDs, err := h.lists.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	roomViews, err := h.views.GetMany(c.Request.Context(), roomIDs)
	if err != nil {
		writeError(c, err)
		return
	}

	type roomResponse struct {
		RoomID int64           `json:"room_id"`
		View   models.RoomView `json:"view"`
	}
	responses := make([]roomResponse, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		responses = append(responses, roomResponse{RoomID: roomID, View: roomViews[roomID]})
	}

	c.JSON(http.StatusOK, gin.H{"rooms": responses})
}

// StartRoom creates or returns the room shared with a peer.
func (h *ChatHandler) StartRoom(c *gin.Context) {
	var req struct {
		PeerID int64 `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	room, created, err := h.rooms.GetOrCreate(c.Request.Context(), userID, req.PeerID)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"room_id": room.ID})
}

// GetMessages returns a room's visible messages for a member.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	msgs, err := h.messages.History(c.Request.Context(), userID, roomID)
	if err != nil {
		writeError(c, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores a message and broadcasts it.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := middleware.UserID(c)
	msg, err := h.messages.Create(c.Request.Context(), userID, roomID, req.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// DeleteMessage removes a message; allowed for its author or staff.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := paramID(c, "message_id")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	if err := h.messages.Delete(c.Request.Context(), userID, middleware.IsStaff(c), messageID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkSeen clears the caller's unread state for the room.
func (h *ChatHandler) MarkSeen(c *gin.Context) {
	roomID, ok := paramID(c, "room_id")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	if err := h.messages.MarkSeen(c.Request.Context(), userID, roomID); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UnreadCount returns the caller's unread box counter.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	count, err := h.unread.Count(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
