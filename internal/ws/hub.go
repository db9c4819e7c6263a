package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"judge-chat-service/internal/models"
	"judge-chat-service/internal/observability"
)

// Hub maintains the active websocket subscriptions per room channel.
type Hub struct {
	rooms    map[int64]map[*websocket.Conn]bool
	connInfo map[int64]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[int64]map[*websocket.Conn]bool),
		connInfo: make(map[int64]map[*websocket.Conn]ConnInfo),
	}
}

// Subscribe registers a websocket connection on a room channel.
func (h *Hub) Subscribe(roomID int64, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	if _, ok := h.connInfo[roomID]; !ok {
		h.connInfo[roomID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[roomID][conn] = info
}

// Unsubscribe removes a websocket connection from a room channel.
func (h *Hub) Unsubscribe(roomID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if infos, ok := h.connInfo[roomID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, roomID)
		}
	}
}

// BroadcastMessage sends a new message to all subscribers of the room.
func (h *Hub) BroadcastMessage(roomID int64, msg models.Message) {
	h.broadcast(roomID, models.ChatEvent{Type: "message", Message: &msg})
}

// BroadcastDeletion notifies subscribers that a message is gone.
func (h *Hub) BroadcastDeletion(roomID, messageID int64) {
	h.broadcast(roomID, models.ChatEvent{Type: "message_deleted", MessageID: messageID})
}

func (h *Hub) broadcast(roomID int64, event models.ChatEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Int64("room_id", roomID).Msg("event encode failed, dropping broadcast")
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warn().Err(err).Int64("room_id", roomID).Msg("websocket write error")
			conn.Close()
			h.Unsubscribe(roomID, conn)
			observability.IncWSEvent("ws_error")
		}
	}
}

// SubscriberCount reports the number of connections on a room channel.
func (h *Hub) SubscriberCount(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
