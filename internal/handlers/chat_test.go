package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"judge-chat-service/internal/apperr"
	"judge-chat-service/internal/handlers"
	"judge-chat-service/internal/mocks"
	"judge-chat-service/internal/models"
)

type handlerMocks struct {
	rooms    *mocks.RoomServiceMock
	messages *mocks.MessageServiceMock
	lists    *mocks.RoomListerMock
	views    *mocks.RoomViewerMock
	unread   *mocks.UnreadCounterMock
	ignores  *mocks.IgnoreServiceMock
}

// identityStub plays the gateway identity middleware for tests.
func identityStub(userID int64, staff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("isStaff", staff)
		c.Next()
	}
}

func setupRouter(userID int64, staff bool) (*gin.Engine, *handlerMocks) {
	gin.SetMode(gin.TestMode)

	m := &handlerMocks{
		rooms:    new(mocks.RoomServiceMock),
		messages: new(mocks.MessageServiceMock),
		lists:    new(mocks.RoomListerMock),
		views:    new(mocks.RoomViewerMock),
		unread:   new(mocks.UnreadCounterMock),
		ignores:  new(mocks.IgnoreServiceMock),
	}

	chat := handlers.NewChatHandler(m.rooms, m.messages, m.lists, m.views, m.unread)
	ignore := handlers.NewIgnoreHandler(m.ignores)

	router := gin.New()
	router.Use(identityStub(userID, staff))
	router.GET("/rooms", chat.ListRooms)
	router.POST("/rooms/start", chat.StartRoom)
	router.GET("/rooms/:room_id/messages", chat.GetMessages)
	router.POST("/rooms/:room_id/messages", chat.PostMessage)
	router.POST("/rooms/:room_id/seen", chat.MarkSeen)
	router.DELETE("/messages/:message_id", chat.DeleteMessage)
	router.GET("/me/unread_count", chat.UnreadCount)
	router.GET("/me/ignores", ignore.ListIgnores)
	router.POST("/me/ignores/:target_id/toggle", ignore.ToggleIgnore)
	return router, m
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListRooms(t *testing.T) {
	router, m := setupRouter(1, false)

	when := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.lists.On("Get", mock.Anything, int64(1)).Return([]int64{5, 3}, nil)
	m.views.On("GetMany", mock.Anything, []int64{5, 3}).Return(map[int64]models.RoomView{
		5: {MemberIDs: []int64{1, 2}, LastMessageBody: "hi", LastMessageID: 9, LastMessageTime: &when},
		3: {MemberIDs: []int64{1, 4}},
	}, nil)

	w := perform(router, http.MethodGet, "/rooms", "")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rooms []struct {
			RoomID int64           `json:"room_id"`
			View   models.RoomView `json:"view"`
		} `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rooms, 2)
	assert.Equal(t, int64(5), resp.Rooms[0].RoomID)
	assert.Equal(t, "hi", resp.Rooms[0].View.LastMessageBody)
	assert.Equal(t, int64(3), resp.Rooms[1].RoomID)
	m.lists.AssertExpectations(t)
	m.views.AssertExpectations(t)
}

func TestStartRoomCreated(t *testing.T) {
	router, m := setupRouter(1, false)

	m.rooms.On("GetOrCreate", mock.Anything, int64(1), int64(2)).
		Return(models.Room{ID: 7}, true, nil)

	w := perform(router, http.MethodPost, "/rooms/start", `{"peer_id": 2}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"room_id": 7}`, w.Body.String())
	m.rooms.AssertExpectations(t)
}

func TestStartRoomExisting(t *testing.T) {
	router, m := setupRouter(1, false)

	m.rooms.On("GetOrCreate", mock.Anything, int64(1), int64(2)).
		Return(models.Room{ID: 7}, false, nil)

	w := perform(router, http.MethodPost, "/rooms/start", `{"peer_id": 2}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartRoomMissingPeer(t *testing.T) {
	router, _ := setupRouter(1, false)

	w := perform(router, http.MethodPost, "/rooms/start", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartRoomSelfIsBadRequest(t *testing.T) {
	router, m := setupRouter(1, false)

	m.rooms.On("GetOrCreate", mock.Anything, int64(1), int64(1)).
		Return(models.Room{}, false, apperr.Validation("cannot open a room with yourself"))

	w := perform(router, http.MethodPost, "/rooms/start", `{"peer_id": 1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessage(t *testing.T) {
	router, m := setupRouter(1, false)

	m.messages.On("Create", mock.Anything, int64(1), int64(5), "hello").
		Return(models.Message{ID: 11, AuthorID: 1, Body: "hello"}, nil)

	w := perform(router, http.MethodPost, "/rooms/5/messages", `{"body": "hello"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	m.messages.AssertExpectations(t)
}

func TestPostMessageNonMemberForbidden(t *testing.T) {
	router, m := setupRouter(1, false)

	m.messages.On("Create", mock.Anything, int64(1), int64(5), "hello").
		Return(models.Message{}, apperr.PermissionDenied("not a room member"))

	w := perform(router, http.MethodPost, "/rooms/5/messages", `{"body": "hello"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPostMessageInvalidRoomID(t *testing.T) {
	router, _ := setupRouter(1, false)

	w := perform(router, http.MethodPost, "/rooms/abc/messages", `{"body": "hello"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessagesEmptyRoom(t *testing.T) {
	router, m := setupRouter(1, false)

	m.messages.On("History", mock.Anything, int64(1), int64(5)).Return(nil, nil)

	w := perform(router, http.MethodGet, "/rooms/5/messages", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages": []}`, w.Body.String())
}

func TestGetMessagesUnknownRoom(t *testing.T) {
	router, m := setupRouter(1, false)

	m.messages.On("History", mock.Anything, int64(1), int64(5)).
		Return(nil, apperr.NotFound("room not found"))

	w := perform(router, http.MethodGet, "/rooms/5/messages", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteMessage(t *testing.T) {
	router, m := setupRouter(1, false)

	m.messages.On("Delete", mock.Anything, int64(1), false, int64(11)).Return(nil)

	w := perform(router, http.MethodDelete, "/messages/11", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	m.messages.AssertExpectations(t)
}

func TestDeleteMessagePassesStaffFlag(t *testing.T) {
	router, m := setupRouter(2, true)

	m.messages.On("Delete", mock.Anything, int64(2), true, int64(11)).Return(nil)

	w := perform(router, http.MethodDelete, "/messages/11", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	m.messages.AssertExpectations(t)
}

func TestDeleteMessageForbidden(t *testing.T) {
	router, m := setupRouter(2, false)

	m.messages.On("Delete", mock.Anything, int64(2), false, int64(11)).
		Return(apperr.PermissionDenied("not the author"))

	w := perform(router, http.MethodDelete, "/messages/11", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMarkSeen(t *testing.T) {
	router, m := setupRouter(1, false)

	m.messages.On("MarkSeen", mock.Anything, int64(1), int64(5)).Return(nil)

	w := perform(router, http.MethodPost, "/rooms/5/seen", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUnreadCount(t *testing.T) {
	router, m := setupRouter(1, false)

	m.unread.On("Count", mock.Anything, int64(1)).Return(3, nil)

	w := perform(router, http.MethodGet, "/me/unread_count", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread_count": 3}`, w.Body.String())
}

func TestUnreadCountCacheOutage(t *testing.T) {
	router, m := setupRouter(1, false)

	m.unread.On("Count", mock.Anything, int64(1)).
		Return(0, apperr.CacheUnavailable("primary cache unavailable", nil))

	w := perform(router, http.MethodGet, "/me/unread_count", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListIgnores(t *testing.T) {
	router, m := setupRouter(1, false)

	m.ignores.On("IgnoredUserIDs", mock.Anything, int64(1)).Return([]int64{4, 9}, nil)

	w := perform(router, http.MethodGet, "/me/ignores", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ignored_user_ids": [4, 9]}`, w.Body.String())
}

func TestToggleIgnore(t *testing.T) {
	router, m := setupRouter(1, false)

	m.ignores.On("ToggleIgnore", mock.Anything, int64(1), int64(4)).Return(true, nil)

	w := perform(router, http.MethodPost, "/me/ignores/4/toggle", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ignored": true}`, w.Body.String())
	m.ignores.AssertExpectations(t)
}

func TestToggleIgnoreSelf(t *testing.T) {
	router, m := setupRouter(1, false)

	m.ignores.On("ToggleIgnore", mock.Anything, int64(1), int64(1)).
		Return(false, apperr.Validation("cannot ignore yourself"))

	w := perform(router, http.MethodPost, "/me/ignores/1/toggle", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
