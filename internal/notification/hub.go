package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"volunteer-service/internal/apperr"
	"volunteer-service/internal/db"
	"volunteer-service/internal/logging"
	"volunteer-service/internal/metrics"
	"volunteer-service/internal/models"
)

// Store is the durable notification log.
type Store interface {
	CreateNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, organisationID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, organisationID, id string) error
	MarkAllNotificationsRead(ctx context.Context, organisationID string) (int64, error)
	CountUnreadNotifications(ctx context.Context, organisationID string) (int, error)
}

// Relay carries live messages to every instance, this one included. Each
// instance hands what it receives to Hub.Deliver.
type Relay interface {
	Relay(ctx context.Context, msg models.LiveMessage) error
}

// Hub persists notifications and fans them out to live channels.
type Hub struct {
	store    Store
	registry *Registry
	relay    Relay
	logger   *logging.Logger
	now      func() time.Time
}

func NewHub(store Store, registry *Registry, logger *logging.Logger) *Hub {
	return &Hub{
		store:    store,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// SetRelay switches live delivery to go through r. Must be called before the
// hub is shared.
func (h *Hub) SetRelay(r Relay) {
	h.relay = r
}

// Publish writes the notification and then attempts live delivery. Only the
// write can fail the call; delivery problems are logged.
func (h *Hub) Publish(ctx context.Context, organisationID, message string) (string, error) {
	n := models.Notification{
		ID:             uuid.New().String(),
		OrganisationID: organisationID,
		Message:        message,
		CreatedAt:      h.now().UTC(),
		IsRead:         false,
	}
	if err := h.store.CreateNotification(ctx, n); err != nil {
		return "", fmt.Errorf("failed to store notification: %w", err)
	}
	metrics.NotificationsPublished.Inc()

	live := models.LiveMessage{OrganisationID: organisationID, NotificationID: n.ID, Message: message}
	if h.relay != nil {
		err := h.relay.Relay(ctx, live)
		if err == nil {
			return n.ID, nil
		}
		h.logger.Warnf("Relay failed for notification %s, delivering locally: %v", n.ID, err)
	}
	h.Deliver(live)
	return n.ID, nil
}

// Deliver pushes a live message to the channels registered on this instance.
func (h *Hub) Deliver(msg models.LiveMessage) {
	sent, failed := h.registry.Send(msg.OrganisationID, []byte(msg.Message))
	if sent > 0 {
		metrics.NotificationDeliveries.WithLabelValues("sent").Add(float64(sent))
	}
	if failed > 0 {
		metrics.NotificationDeliveries.WithLabelValues("failed").Add(float64(failed))
	}
	h.logger.Debugf("Notification %s delivered to organisation %s: sent=%d failed=%d",
		msg.NotificationID, msg.OrganisationID, sent, failed)
}

func (h *Hub) Connect(organisationID string, ch Channel) error {
	return h.registry.Add(organisationID, ch)
}

// Disconnect deregisters and closes the channel.
func (h *Hub) Disconnect(organisationID string, ch Channel) {
	h.registry.Remove(organisationID, ch)
	_ = ch.Close()
}

func (h *Hub) List(ctx context.Context, organisationID string) ([]models.Notification, error) {
	list, err := h.store.ListNotifications(ctx, organisationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

// MarkRead flips one notification of the organisation to read.
func (h *Hub) MarkRead(ctx context.Context, organisationID, notificationID string) error {
	err := h.store.MarkNotificationRead(ctx, organisationID, notificationID)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("notification not found")
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead returns how many notifications were flipped.
func (h *Hub) MarkAllRead(ctx context.Context, organisationID string) (int64, error) {
	n, err := h.store.MarkAllNotificationsRead(ctx, organisationID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

func (h *Hub) UnreadCount(ctx context.Context, organisationID string) (int, error) {
	n, err := h.store.CountUnreadNotifications(ctx, organisationID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}
