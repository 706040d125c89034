package report

import (
	"net/http"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetUserStats handles GET /users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	stats, err := h.svc.GetUserStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
