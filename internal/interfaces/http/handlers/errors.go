// internal/interfaces/http/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/domain/reservation"
	"github.com/ruralcare/medreserve/internal/domain/user"
	"github.com/ruralcare/medreserve/internal/interfaces/http/middleware"
)

// respondError maps domain errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	if available, ok := apperr.AvailableStock(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"error":           err.Error(),
			"available_stock": available,
		})
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrInvalidTransition):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperr.ErrAlreadyExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperr.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, apperr.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrConflictRetryExhausted):
		status, message = http.StatusServiceUnavailable, "Resource is busy, please retry"
	case errors.Is(err, user.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, err.Error()
	}

	c.JSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + param,
		})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return value
}

func currentActor(c *gin.Context) (reservation.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
	}
	return actor, ok
}
