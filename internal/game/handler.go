package game

import (
	"net/http"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/gin-gonic/gin"
)

type listQuery struct {
	Limit       int  `form:"limit" binding:"omitempty,min=1,max=100"`
	FriendsOnly bool `form:"friendsOnly"`
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListActive handles GET /games.
func (h *Handler) ListActive(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	games, err := h.svc.ActiveGames(c.Request.Context(), q.Limit, q.FriendsOnly, user.ViewerID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

// Create handles POST /games for the current viewer.
func (h *Handler) Create(c *gin.Context) {
	var body CreateInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game payload: " + err.Error()})
		return
	}
	g, err := h.svc.CreateGame(c.Request.Context(), user.ViewerID(c), body)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// Get handles GET /games/:id.
func (h *Handler) Get(c *gin.Context) {
	v, err := h.svc.GameWithCreator(c.Request.Context(), c.Param("id"), user.ViewerID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Results handles GET /games/:id/results. While the game is active only
// viewers who already voted see the breakdown.
func (h *Handler) Results(c *gin.Context) {
	r, err := h.svc.GameWithResults(c.Request.Context(), c.Param("id"), user.ViewerID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if !r.ResultsVisible() {
		apperr.Respond(c, apperr.Forbidden("Game is still active"))
		return
	}
	c.JSON(http.StatusOK, r)
}

// Expire handles POST /games/:id/expire.
func (h *Handler) Expire(c *gin.Context) {
	g, err := h.svc.ExpireGame(c.Request.Context(), c.Param("id"), user.ViewerID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// ListByUser handles GET /users/:id/games.
func (h *Handler) ListByUser(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	games, err := h.svc.UserGames(c.Request.Context(), c.Param("id"), user.ViewerID(c), q.Limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}
