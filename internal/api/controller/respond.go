package controller

import (
	"errors"
	"net/http"

	"github.com/bassista/mealsync/internal/household"
	"github.com/bassista/mealsync/internal/logger"
	"github.com/bassista/mealsync/internal/push"
	"github.com/gin-gonic/gin"
)

// Notifier fans change notifications out to the push sessions.
type Notifier interface {
	Broadcast(msg push.Message)
}

// respondError maps store errors onto status codes.
func respondError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, household.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, household.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.WithComponent(component).Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update household"})
	}
}

func notify(n Notifier, resource string, dates ...string) {
	if n != nil {
		n.Broadcast(push.Invalidation(resource, dates...))
	}
}
