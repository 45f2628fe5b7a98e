package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mongorepo "github.com/hearsay-labs/hearsay/internal/repositories/mongo"
	"github.com/hearsay-labs/hearsay/internal/utils"
)

// MemoryHandler exposes the query pipeline over plain HTTP for clients that
// do not hold a websocket open.
type MemoryHandler struct {
	queries  QueryService
	segments mongorepo.SegmentRepository
}

func NewMemoryHandler(queries QueryService, segments mongorepo.SegmentRepository) *MemoryHandler {
	return &MemoryHandler{queries: queries, segments: segments}
}

type queryRequest struct {
	Text string `json:"text"`
}

func (h *MemoryHandler) Query(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MemoryHandler.Query", "invalid request body", err))
		return
	}

	resp, err := h.queries.Query(c.Request.Context(), userID, req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MemoryHandler) DeleteAll(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	msg, err := h.queries.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (h *MemoryHandler) ListSegments(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}

	if h.segments == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "MemoryHandler.ListSegments", "segment journal is not configured", nil))
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MemoryHandler.ListSegments", "missing session_id", nil))
		return
	}

	segs, err := h.segments.ListBySession(c.Request.Context(), sessionID, 0)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, "MemoryHandler.ListSegments", "failed to list segments", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": segs})
}
