package models

import (
	"time"
)

type Direction string

const (
	UserToOrg Direction = "user_to_org"
	OrgToUser Direction = "org_to_user"
)

// Review is one directional rating tied to a completed event relationship.
type Review struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	SubjectUserID  string    `json:"user_id"`
	OrganisationID string    `json:"organisation_id"`
	Direction      Direction `json:"direction"`
	Rating         int       `json:"rating"`
	Comment        *string   `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewFilter selects reviews for aggregate queries. Empty fields match anything.
type ReviewFilter struct {
	OrganisationID string
	SubjectUserID  string
	Direction      Direction
}

// PublicReview is the read-time projection with ids replaced by display names.
type PublicReview struct {
	EventName        string    `json:"event_name"`
	UserName         string    `json:"user_name"`
	OrganisationName string    `json:"organisation_name"`
	Rating           int       `json:"rating"`
	Comment          *string   `json:"comment"`
	CreatedAt        time.Time `json:"created_at"`
}

// AverageRating is nil-valued when there is nothing to average.
type AverageRating struct {
	Value *float64 `json:"avg_rating"`
}
