package user

import (
	"net/http"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

// TokenIssuer mints session tokens at login.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type Handler struct {
	ledger *Ledger
	tokens TokenIssuer
}

func NewHandler(ledger *Ledger, tokens TokenIssuer) *Handler {
	return &Handler{ledger: ledger, tokens: tokens}
}

type loginResponse struct {
	User    *User  `json:"user"`
	Token   string `json:"token"`
	Created bool   `json:"created"`
}

// Login handles POST /auth/login with a profile resolved by the identity provider.
func (h *Handler) Login(c *gin.Context) {
	var body Profile
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload: " + err.Error()})
		return
	}
	u, created, err := h.ledger.Login(c.Request.Context(), body)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	tok, err := h.tokens.Issue(u.ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, loginResponse{User: u, Token: tok, Created: created})
}

// GetUser handles GET /users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.ledger.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// AddFriend handles POST /friends/:id for the current viewer.
func (h *Handler) AddFriend(c *gin.Context) {
	if err := h.ledger.AddFriend(c.Request.Context(), ViewerID(c), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
