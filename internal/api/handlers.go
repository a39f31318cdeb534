package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"volunteer-service/internal/models"
	"volunteer-service/internal/services"
)

type applyRequest struct {
	EventID    string  `json:"event_id"`
	Motivation string  `json:"motivation"`
	Phone      string  `json:"phone"`
	ExtraNotes *string `json:"extra_notes"`
}

type decideRequest struct {
	Status     models.ApplicationStatus `json:"status"`
	ExtraNotes *string                  `json:"extra_notes"`
}

type reviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

// Applications

func (h *Handler) Apply(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidBody(c, err)
		return
	}
	p := principalFrom(c)

	app, err := h.apps.Submit(c.Request.Context(), services.SubmitApplication{
		SubjectID:  p.ID,
		EventID:    req.EventID,
		Motivation: req.Motivation,
		Phone:      req.Phone,
		ExtraNotes: req.ExtraNotes,
	})
	if err != nil {
		h.respondError(c, "Apply", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":        "Application submitted",
		"application_id": app.ID,
		"status":         app.Status,
	})
}

func (h *Handler) CancelApplication(c *gin.Context) {
	p := principalFrom(c)
	if err := h.apps.Cancel(c.Request.Context(), c.Param("id"), p.ID); err != nil {
		h.respondError(c, "Cancel application", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application withdrawn"})
}

func (h *Handler) DecideApplication(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidBody(c, err)
		return
	}
	p := principalFrom(c)

	err := h.apps.Decide(c.Request.Context(), services.Decision{
		ApplicationID:  c.Param("id"),
		OrganisationID: p.ID,
		Status:         req.Status,
		ExtraNotes:     req.ExtraNotes,
	})
	if err != nil {
		h.respondError(c, "Decide application", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Application status updated"})
}

func (h *Handler) MyApplications(c *gin.Context) {
	list, err := h.apps.ListMine(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, "List my applications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) EventApplications(c *gin.Context) {
	list, err := h.apps.ListForEvent(c.Request.Context(), principalFrom(c).ID, c.Param("eventId"))
	if err != nil {
		h.respondError(c, "List event applications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) OrganisationApplications(c *gin.Context) {
	list, err := h.apps.ListForOrganisation(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, "List organisation applications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Reviews

func (h *Handler) ReviewOrganisation(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidBody(c, err)
		return
	}
	review, err := h.reviews.Submit(c.Request.Context(), services.ReviewSubmission{
		Direction:     models.UserToOrg,
		EventID:       c.Param("eventId"),
		SubjectUserID: principalFrom(c).ID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	})
	if err != nil {
		h.respondError(c, "Review organisation", err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) ReviewVolunteer(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidBody(c, err)
		return
	}
	review, err := h.reviews.Submit(c.Request.Context(), services.ReviewSubmission{
		Direction:      models.OrgToUser,
		EventID:        c.Param("eventId"),
		SubjectUserID:  c.Param("userId"),
		OrganisationID: principalFrom(c).ID,
		Rating:         req.Rating,
		Comment:        req.Comment,
	})
	if err != nil {
		h.respondError(c, "Review volunteer", err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) OrganisationReviews(c *gin.Context) {
	list, err := h.reviews.ReceivedByOrganisation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "List organisation reviews", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) OrganisationGivenReviews(c *gin.Context) {
	list, err := h.reviews.GivenByOrganisation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "List given reviews", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) OrganisationAverageRating(c *gin.Context) {
	avg, err := h.reviews.OrganisationAverage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Organisation average rating", err)
		return
	}
	c.JSON(http.StatusOK, avg)
}

func (h *Handler) UserReviews(c *gin.Context) {
	list, err := h.reviews.ForUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "List user reviews", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) UserAverageRating(c *gin.Context) {
	avg, err := h.reviews.UserAverage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "User average rating", err)
		return
	}
	c.JSON(http.StatusOK, avg)
}

// Notifications

func (h *Handler) MyNotifications(c *gin.Context) {
	list, err := h.hub.List(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, "List notifications", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.hub.MarkRead(c.Request.Context(), principalFrom(c).ID, c.Param("id")); err != nil {
		h.respondError(c, "Mark notification read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.hub.MarkAllRead(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, "Mark all notifications read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.hub.UnreadCount(c.Request.Context(), principalFrom(c).ID)
	if err != nil {
		h.respondError(c, "Unread count", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}
