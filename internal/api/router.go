package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"volunteer-service/internal/auth"
	"volunteer-service/internal/logging"
)

func NewRouter(h *Handler, verifier *auth.Verifier, logger *logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLoggingMiddleware(logger))

	volunteer := AuthMiddleware(verifier, auth.RoleUser)
	organisation := AuthMiddleware(verifier, auth.RoleOrganisation)

	api := r.Group(h.config.API.BasePath)
	{
		// Applications
		api.POST("/applications", volunteer, h.Apply)
		api.GET("/applications/mine", volunteer, h.MyApplications)
		api.PATCH("/applications/:id/cancel", volunteer, h.CancelApplication)
		api.PATCH("/applications/:id", organisation, h.DecideApplication)
		api.GET("/organisation/applications", organisation, h.OrganisationApplications)
		api.GET("/organisation/events/:eventId/applications", organisation, h.EventApplications)

		// Reviews
		api.POST("/reviews/user-to-org/:eventId", volunteer, h.ReviewOrganisation)
		api.POST("/reviews/org-to-user/:eventId/:userId", organisation, h.ReviewVolunteer)
		api.GET("/organisations/:id/reviews", h.OrganisationReviews)
		api.GET("/organisations/:id/reviews/given", h.OrganisationGivenReviews)
		api.GET("/organisations/:id/avg-rating", h.OrganisationAverageRating)
		api.GET("/users/:id/reviews", h.UserReviews)
		api.GET("/users/:id/avg-rating", h.UserAverageRating)

		// Notifications
		api.GET("/notifications/mine", organisation, h.MyNotifications)
		api.GET("/notifications/unread-count", organisation, h.UnreadCount)
		api.PATCH("/notifications/read-all", organisation, h.MarkAllNotificationsRead)
		api.PATCH("/notifications/:id/read", organisation, h.MarkNotificationRead)
		api.GET("/notifications/ws", h.NotificationsSocket(verifier))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
