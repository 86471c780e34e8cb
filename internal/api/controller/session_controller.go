package controller

import (
	"net/http"

	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/model"
	"github.com/bassista/mealsync/internal/push"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// TokenKey is where BearerAuth leaves the caller's token in the gin context.
const TokenKey = "token"

// Disconnector drops the push connections opened with a token.
type Disconnector interface {
	Disconnect(token string) int
}

// SessionController opens and closes member sessions.
type SessionController struct {
	store     household.SessionStore
	push      Disconnector
	validator *validator.Validate
}

func NewSessionController(store household.SessionStore, hub Disconnector) *SessionController {
	return &SessionController{store: store, push: hub, validator: validator.New()}
}

// Login handles POST /session.
func (sc *SessionController) Login(c *gin.Context) {
	var req model.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := sc.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := sc.store.OpenSession(req.Name)
	if err != nil {
		respondError(c, "session-controller", err)
		return
	}
	c.JSON(http.StatusCreated, model.SessionResponse{Token: m.Token})
}

// Logout handles DELETE /session. Push connections opened with the token
// are closed as well.
func (sc *SessionController) Logout(c *gin.Context) {
	token := c.GetString(TokenKey)
	if token == "" {
		token = push.BearerToken(c.GetHeader("Authorization"))
	}
	if err := sc.store.CloseSession(token); err != nil {
		respondError(c, "session-controller", err)
		return
	}
	if sc.push != nil {
		sc.push.Disconnect(token)
	}
	c.Status(http.StatusNoContent)
}
