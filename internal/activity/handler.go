package activity

import (
	"net/http"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

type listQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type Handler struct {
	log *Log
}

func NewHandler(log *Log) *Handler {
	return &Handler{log: log}
}

// GetRecent handles GET /activities.
func (h *Handler) GetRecent(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := h.log.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetUserActivities handles GET /users/:id/activities.
func (h *Handler) GetUserActivities(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	items, err := h.log.ForUser(c.Request.Context(), c.Param("id"), q.Limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
