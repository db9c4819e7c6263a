package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"judge-chat-service/internal/middleware"
	"judge-chat-service/internal/observability"
	"judge-chat-service/internal/repositories"
)

// SeenMarker clears the unread state of a membership; the connect path marks
// the room seen so the unread box reflects the open conversation.
type SeenMarker interface {
	MarkSeen(ctx context.Context, userID, roomID int64) error
}

// RoomWebSocketHandler handles room channel websocket connections.
type RoomWebSocketHandler struct {
	hub   *Hub
	rooms repositories.RoomRepository
	seen  SeenMarker
}

// NewRoomWebSocketHandler constructs a RoomWebSocketHandler.
func NewRoomWebSocketHandler(hub *Hub, rooms repositories.RoomRepository, seen SeenMarker) *RoomWebSocketHandler {
	return &RoomWebSocketHandler{hub: hub, rooms: rooms, seen: seen}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and subscribes it to the room channel.
func (h *RoomWebSocketHandler) Handle(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	ctx, span := otel.Tracer("judge-chat-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	if _, err := h.rooms.Membership(c.Request.Context(), userID, roomID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Subscribe(roomID, conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")

	// An open conversation counts as read.
	if err := h.seen.MarkSeen(c.Request.Context(), userID, roomID); err != nil {
		log.Warn().Err(err).Int64("room_id", roomID).Int64("user_id", userID).Msg("mark seen on connect failed")
	}

	// Keep connection alive and clean up on close.
	go func() {
		defer func() {
			h.hub.Unsubscribe(roomID, conn)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
				}
				return
			}
		}
	}()
}
