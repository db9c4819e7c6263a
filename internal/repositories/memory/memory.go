// Package memory provides in-memory implementations of the repository
// interfaces. They back the service tests and local development without a
// PostgreSQL instance, and mirror the SQL semantics exactly: ordering,
// eviction tie-breaks, cascade deletion and the unread floor.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"judge-chat-service/internal/models"
	"judge-chat-service/internal/repositories"
)

// Store holds all chat state behind one mutex. The repository views share it
// so cross-entity operations (cascade delete) stay consistent.
type Store struct {
	mu sync.Mutex

	nextRoomID    int64
	nextMessageID int64

	rooms       map[int64]*models.Room
	messages    map[int64]*models.Message
	memberships map[int64]map[int64]*models.Membership // roomID -> userID -> row
	ignores     map[int64]map[int64]bool               // userID -> targetID
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nextRoomID:    1,
		nextMessageID: 1,
		rooms:         make(map[int64]*models.Room),
		messages:      make(map[int64]*models.Message),
		memberships:   make(map[int64]map[int64]*models.Membership),
		ignores:       make(map[int64]map[int64]bool),
	}
}

// Rooms returns the room/membership repository view of the store.
func (s *Store) Rooms() repositories.RoomRepository { return (*roomRepo)(s) }

// Messages returns the message repository view of the store.
func (s *Store) Messages() repositories.MessageRepository { return (*messageRepo)(s) }

// Ignores returns the ignore repository view of the store.
func (s *Store) Ignores() repositories.IgnoreRepository { return (*ignoreRepo)(s) }

type roomRepo Store

func (r *roomRepo) CreateWithMembers(_ context.Context, userA, userB int64, now time.Time) (models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := &models.Room{ID: r.nextRoomID}
	r.nextRoomID++
	r.rooms[room.ID] = room
	r.memberships[room.ID] = map[int64]*models.Membership{
		userA: {UserID: userA, RoomID: room.ID, LastSeenAt: now},
		userB: {UserID: userB, RoomID: room.ID, LastSeenAt: now},
	}
	return *room, nil
}

func (r *roomRepo) Get(_ context.Context, roomID int64) (models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return models.Room{}, repositories.ErrRoomNotFound
	}
	return *room, nil
}

func (r *roomRepo) Delete(_ context.Context, roomID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	delete(r.memberships, roomID)
	for id, msg := range r.messages {
		if msg.RoomID != nil && *msg.RoomID == roomID {
			delete(r.messages, id)
		}
	}
	return nil
}

func (r *roomRepo) SetLastMessageID(_ context.Context, roomID int64, messageID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return repositories.ErrRoomNotFound
	}
	room.LastMessageID = messageID
	return nil
}

func (r *roomRepo) MemberIDs(_ context.Context, roomID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for userID := range r.memberships[roomID] {
		ids = append(ids, userID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *roomRepo) MembershipsByRooms(_ context.Context, roomIDs []int64) ([]models.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []models.Membership
	for _, roomID := range roomIDs {
		for _, m := range r.memberships[roomID] {
			rows = append(rows, *m)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RoomID != rows[j].RoomID {
			return rows[i].RoomID < rows[j].RoomID
		}
		return rows[i].UserID < rows[j].UserID
	})
	return rows, nil
}

func (r *roomRepo) Membership(_ context.Context, userID, roomID int64) (models.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[roomID][userID]
	if !ok {
		return models.Membership{}, repositories.ErrRoomNotFound
	}
	return *m, nil
}

// userRooms collects the rooms the user belongs to; callers sort. Caller
// must hold the mutex.
func (r *roomRepo) userRooms(userID int64) []*models.Room {
	var rooms []*models.Room
	for roomID, members := range r.memberships {
		if _, ok := members[userID]; ok {
			if room, exists := r.rooms[roomID]; exists {
				rooms = append(rooms, room)
			}
		}
	}
	return rooms
}

func (r *roomRepo) RoomIDsOrdered(_ context.Context, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := r.userRooms(userID)
	sort.Slice(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		switch {
		case a.LastMessageID == nil && b.LastMessageID == nil:
			return a.ID > b.ID
		case a.LastMessageID == nil:
			return false // NULLS LAST
		case b.LastMessageID == nil:
			return true
		case *a.LastMessageID != *b.LastMessageID:
			return *a.LastMessageID > *b.LastMessageID
		default:
			return a.ID > b.ID
		}
	})
	ids := make([]int64, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}
	return ids, nil
}

func (r *roomRepo) CountRooms(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.userRooms(userID)), nil
}

func (r *roomRepo) OldestRoomID(_ context.Context, userID, excludeRoomID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.userRooms(userID)
	rooms := all[:0]
	for _, room := range all {
		if room.ID != excludeRoomID {
			rooms = append(rooms, room)
		}
	}
	if len(rooms) == 0 {
		return 0, repositories.ErrRoomNotFound
	}
	sort.Slice(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		switch {
		case a.LastMessageID == nil && b.LastMessageID == nil:
			return a.ID < b.ID
		case a.LastMessageID == nil:
			return true // NULLS FIRST
		case b.LastMessageID == nil:
			return false
		case *a.LastMessageID != *b.LastMessageID:
			return *a.LastMessageID < *b.LastMessageID
		default:
			return a.ID < b.ID
		}
	})
	return rooms[0].ID, nil
}

func (r *roomRepo) MarkSeen(_ context.Context, userID, roomID int64, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.memberships[roomID][userID]
	if !ok {
		return repositories.ErrRoomNotFound
	}
	m.LastSeenAt = now
	m.UnreadCount = 0
	return nil
}

func (r *roomRepo) IncrementUnread(_ context.Context, roomID, exceptUserID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, m := range r.memberships[roomID] {
		if userID != exceptUserID {
			m.UnreadCount++
		}
	}
	return nil
}

func (r *roomRepo) DecrementUnreadBefore(_ context.Context, roomID int64, before time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected []int64
	for userID, m := range r.memberships[roomID] {
		if m.LastSeenAt.Before(before) && m.UnreadCount > 0 {
			m.UnreadCount--
			affected = append(affected, userID)
		}
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })
	return affected, nil
}

func (r *roomRepo) UnreadRoomIDs(_ context.Context, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for roomID, members := range r.memberships {
		if m, ok := members[userID]; ok && m.UnreadCount > 0 {
			ids = append(ids, roomID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type messageRepo Store

func (r *messageRepo) Create(_ context.Context, roomID, authorID int64, body string) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		return models.Message{}, repositories.ErrRoomNotFound
	}
	owner := roomID
	msg := &models.Message{
		ID:        r.nextMessageID,
		RoomID:    &owner,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	r.nextMessageID++
	r.messages[msg.ID] = msg
	return *msg, nil
}

func (r *messageRepo) Get(_ context.Context, messageID int64) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return models.Message{}, repositories.ErrMessageNotFound
	}
	return *msg, nil
}

func (r *messageRepo) Delete(_ context.Context, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.messages[messageID]; !ok {
		return repositories.ErrMessageNotFound
	}
	delete(r.messages, messageID)
	return nil
}

func (r *messageRepo) ListByRoom(_ context.Context, roomID int64) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []models.Message
	for _, msg := range r.messages {
		if msg.RoomID != nil && *msg.RoomID == roomID && !msg.Hidden {
			msgs = append(msgs, *msg)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}

func (r *messageRepo) LatestIDs(_ context.Context, roomIDs []int64) (map[int64]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	requested := make(map[int64]bool, len(roomIDs))
	for _, id := range roomIDs {
		requested[id] = true
	}
	out := make(map[int64]int64, len(roomIDs))
	for _, msg := range r.messages {
		if msg.RoomID == nil || msg.Hidden || !requested[*msg.RoomID] {
			continue
		}
		if msg.ID > out[*msg.RoomID] {
			out[*msg.RoomID] = msg.ID
		}
	}
	return out, nil
}

func (r *messageRepo) GetByIDs(_ context.Context, messageIDs []int64) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []models.Message
	for _, id := range messageIDs {
		if msg, ok := r.messages[id]; ok {
			msgs = append(msgs, *msg)
		}
	}
	return msgs, nil
}

func (r *messageRepo) LatestID(_ context.Context, roomID int64) (*int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest int64
	for _, msg := range r.messages {
		if msg.RoomID != nil && *msg.RoomID == roomID && !msg.Hidden && msg.ID > latest {
			latest = msg.ID
		}
	}
	if latest == 0 {
		return nil, nil
	}
	return &latest, nil
}

type ignoreRepo Store

func (r *ignoreRepo) Add(_ context.Context, userID, targetID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ignores[userID] == nil {
		r.ignores[userID] = make(map[int64]bool)
	}
	r.ignores[userID][targetID] = true
	return nil
}

func (r *ignoreRepo) Remove(_ context.Context, userID, targetID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ignores[userID], targetID)
	return nil
}

func (r *ignoreRepo) ListTargets(_ context.Context, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for targetID := range r.ignores[userID] {
		ids = append(ids, targetID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

var (
	_ repositories.RoomRepository    = (*roomRepo)(nil)
	_ repositories.MessageRepository = (*messageRepo)(nil)
	_ repositories.IgnoreRepository  = (*ignoreRepo)(nil)
)
