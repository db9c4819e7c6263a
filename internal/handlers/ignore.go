package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"judge-chat-service/internal/middleware"
)

// IgnoreService is the block-filter surface the handler consumes.
type IgnoreService interface {
	IgnoredUserIDs(ctx context.Context, userID int64) ([]int64, error)
	ToggleIgnore(ctx context.Context, userID, targetID int64) (bool, error)
}

// IgnoreHandler manages the block/ignore endpoints.
type IgnoreHandler struct {
	ignores IgnoreService
}

// NewIgnoreHandler builds an IgnoreHandler.
func NewIgnoreHandler(ignores IgnoreService) *IgnoreHandler {
	return &IgnoreHandler{ignores: ignores}
}

// ListIgnores returns the caller's blocked user ids.
func (h *IgnoreHandler) ListIgnores(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	ids, err := h.ignores.IgnoredUserIDs(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	c.JSON(http.StatusOK, gin.H{"ignored_user_ids": ids})
}

// ToggleIgnore flips the block state for a target user.
func (h *IgnoreHandler) ToggleIgnore(c *gin.Context) {
	targetID, ok := paramID(c, "target_id")
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	ignored, err := h.ignores.ToggleIgnore(c.Request.Context(), userID, targetID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ignored": ignored})
}
