package models

import (
	"time"
)

// Notification is one message addressed to an organisation.
type Notification struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisation_id"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
}

// LiveMessage is what travels between instances when live fan-out is relayed.
type LiveMessage struct {
	OrganisationID string `json:"organisation_id"`
	NotificationID string `json:"notification_id"`
	Message        string `json:"message"`
}
