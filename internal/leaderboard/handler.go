package leaderboard

import (
	"net/http"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

type boardQuery struct {
	Timeframe string `form:"timeframe" binding:"omitempty,oneof=weekly all-time"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetLeaderboard handles GET /leaderboard.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	var q boardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tf, err := ParseTimeframe(q.Timeframe)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	entries, err := h.svc.Leaderboard(c.Request.Context(), tf, q.Limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timeframe": tf, "entries": entries})
}

// GetUserRank handles GET /users/:id/rank.
func (h *Handler) GetUserRank(c *gin.Context) {
	tf, err := ParseTimeframe(c.Query("timeframe"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	rank, err := h.svc.UserRank(c.Request.Context(), c.Param("id"), tf)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": c.Param("id"), "timeframe": tf, "rank": rank})
}
