package vote

import (
	"context"
	"net/http"

	"github.com/SlpAus/spot-the-lie-backend/internal/game"
	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/SlpAus/spot-the-lie-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// GameGetter loads the game a vote was cast on, to reveal its answer.
type GameGetter interface {
	GetGame(ctx context.Context, id string) (*game.Game, error)
}

type castRequest struct {
	SelectedStatement int `json:"selectedStatement" binding:"required"`
}

type castResponse struct {
	Vote         *Vote   `json:"vote"`
	IsCorrect    bool    `json:"isCorrect"`
	LieStatement int     `json:"lieStatement"`
	Explanation  *string `json:"explanation,omitempty"`
}

type Handler struct {
	engine *Engine
	games  GameGetter
}

func NewHandler(engine *Engine, games GameGetter) *Handler {
	return &Handler{engine: engine, games: games}
}

// Cast handles POST /games/:id/votes for the current viewer. A successful
// vote reveals the answer to the voter.
func (h *Handler) Cast(c *gin.Context) {
	var body castRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vote payload: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	gameID := c.Param("id")

	v, err := h.engine.CastVote(ctx, gameID, user.ViewerID(c), body.SelectedStatement)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	g, err := h.games.GetGame(ctx, gameID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, castResponse{
		Vote:         v,
		IsCorrect:    v.IsCorrect,
		LieStatement: g.LieStatement,
		Explanation:  g.Explanation,
	})
}
