package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteer-service/internal/apperr"
	"volunteer-service/internal/auth"
	"volunteer-service/internal/config"
	"volunteer-service/internal/logging"
	"volunteer-service/internal/notification"
	"volunteer-service/internal/services"
)

type Handler struct {
	apps    *services.ApplicationManager
	reviews *services.ReviewEngine
	hub     *notification.Hub
	logger  *logging.Logger
	config  config.Config
}

func NewHandler(
	apps *services.ApplicationManager,
	reviews *services.ReviewEngine,
	hub *notification.Hub,
	logger *logging.Logger,
	cfg config.Config,
) *Handler {
	return &Handler{apps: apps, reviews: reviews, hub: hub, logger: logger, config: cfg}
}

// statusFor maps the service error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalidState),
		errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, action string, err error) {
	status := statusFor(err)
	log := h.logger.WithRequest(requestID(c))
	if status == http.StatusInternalServerError {
		log.Errorf("%s failed: %v", action, err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	log.Infof("%s refused (%d): %v", action, status, err)
	msg := apperr.Message(err)
	if msg == "" {
		msg = err.Error()
	}
	c.JSON(status, gin.H{"error": msg})
}

func (h *Handler) invalidBody(c *gin.Context, err error) {
	h.logger.WithRequest(requestID(c)).Warnf("Invalid request body: %v", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
}
