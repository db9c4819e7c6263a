package models

import "time"

// Room is a conversation between exactly two users, defined by its
// membership rows. LastMessageID caches the newest non-hidden message id
// and is nil for a room that has no messages yet.
type Room struct {
	ID            int64  `db:"id" json:"id"`
	LastMessageID *int64 `db:"last_message_id" json:"last_message_id,omitempty"`
}

// Membership is the per-user state within a room.
type Membership struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	RoomID      int64     `db:"room_id" json:"room_id"`
	LastSeenAt  time.Time `db:"last_seen_at" json:"last_seen_at"`
	UnreadCount int       `db:"unread_count" json:"unread_count"`
}

// RoomView is the cached per-room aggregate. Last-message fields are omitted
// entirely when the room has no messages, keeping cache payloads small.
type RoomView struct {
	MemberIDs       []int64    `json:"member_ids,omitempty"`
	LastMessageBody string     `json:"last_message_body,omitempty"`
	LastMessageID   int64      `json:"last_message_id,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
}

// HasLastMessage reports whether the room has any visible message.
func (v RoomView) HasLastMessage() bool { return v.LastMessageID != 0 }

// Members returns the member ids, never nil.
func (v RoomView) Members() []int64 {
	if v.MemberIDs == nil {
		return []int64{}
	}
	return v.MemberIDs
}
