package models

import "time"

// MaxMessageLen bounds the stored message body after trimming.
const MaxMessageLen = 20000

// Message represents a chat message. RoomID is nullable: a message detaches
// from its room when the room is evicted before the cascade removes it.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	RoomID    *int64    `db:"room_id" json:"room_id,omitempty"`
	AuthorID  int64     `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	Hidden    bool      `db:"hidden" json:"hidden"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatEvent is broadcast through websockets to a room channel.
type ChatEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID int64    `json:"message_id,omitempty"`
}
