package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"volunteer-service/internal/auth"
	"volunteer-service/internal/notification"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers cannot set headers on the handshake; the token in the query
	// string is what authenticates the connection.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NotificationsSocket upgrades an organisation session to a live channel.
// Auth comes from ?token= or the Authorization header.
func (h *Handler) NotificationsSocket(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c)
		}
		p, err := verifier.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}
		if p.Role != auth.RoleOrganisation {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only organisations can subscribe to notifications"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.WithRequest(requestID(c)).Errorf("WebSocket upgrade failed: %v", err)
			return
		}
		log := h.logger.WithRequest(requestID(c))
		log.Infof("Organisation %s connected", p.ID)
		err = h.hub.Serve(p.ID, conn, h.config.Notification.WriteTimeout)
		if errors.Is(err, notification.ErrTooManyConnections) {
			log.Warnf("Organisation %s refused: %v", p.ID, err)
			return
		}
		log.Infof("Organisation %s disconnected", p.ID)
	}
}
