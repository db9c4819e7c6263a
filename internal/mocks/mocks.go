package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"judge-chat-service/internal/handlers"
	"judge-chat-service/internal/models"
)

type RoomServiceMock struct {
	mock.Mock
}

func (m *RoomServiceMock) GetOrCreate(ctx context.Context, userA, userB int64) (models.Room, bool, error) {
	args := m.Called(ctx, userA, userB)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Bool(1), args.Error(2)
}

type MessageServiceMock struct {
	mock.Mock
}

func (m *MessageServiceMock) Create(ctx context.Context, authorID, roomID int64, body string) (models.Message, error) {
	args := m.Called(ctx, authorID, roomID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageServiceMock) Delete(ctx context.Context, requesterID int64, staff bool, messageID int64) error {
	args := m.Called(ctx, requesterID, staff, messageID)
	return args.Error(0)
}

func (m *MessageServiceMock) History(ctx context.Context, userID, roomID int64) ([]models.Message, error) {
	args := m.Called(ctx, userID, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageServiceMock) MarkSeen(ctx context.Context, userID, roomID int64) error {
	args := m.Called(ctx, userID, roomID)
	return args.Error(0)
}

type RoomListerMock struct {
	mock.Mock
}

func (m *RoomListerMock) Get(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

type RoomViewerMock struct {
	mock.Mock
}

func (m *RoomViewerMock) GetMany(ctx context.Context, roomIDs []int64) (map[int64]models.RoomView, error) {
	args := m.Called(ctx, roomIDs)
	var viewsByRoom map[int64]models.RoomView
	if val := args.Get(0); val != nil {
		viewsByRoom = val.(map[int64]models.RoomView)
	}
	return viewsByRoom, args.Error(1)
}

type UnreadCounterMock struct {
	mock.Mock
}

func (m *UnreadCounterMock) Count(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type IgnoreServiceMock struct {
	mock.Mock
}

func (m *IgnoreServiceMock) IgnoredUserIDs(ctx context.Context, userID int64) ([]int64, error) {
	args := m.Called(ctx, userID)
	var ids []int64
	if val := args.Get(0); val != nil {
		ids = val.([]int64)
	}
	return ids, args.Error(1)
}

func (m *IgnoreServiceMock) ToggleIgnore(ctx context.Context, userID, targetID int64) (bool, error) {
	args := m.Called(ctx, userID, targetID)
	return args.Bool(0), args.Error(1)
}

var _ handlers.RoomService = (*RoomServiceMock)(nil)
var _ handlers.MessageService = (*MessageServiceMock)(nil)
var _ handlers.RoomLister = (*RoomListerMock)(nil)
var _ handlers.RoomViewer = (*RoomViewerMock)(nil)
var _ handlers.UnreadCounter = (*UnreadCounterMock)(nil)
var _ handlers.IgnoreService = (*IgnoreServiceMock)(nil)
