package models

import (
	"time"
)

type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusAccepted  ApplicationStatus = "accepted"
	StatusRejected  ApplicationStatus = "rejected"
	StatusCancelled ApplicationStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusCancelled
}

// SubjectSnapshot is the volunteer's display data as it was when the
// application was created. It is never refreshed from the live profile.
type SubjectSnapshot struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// Application is one volunteer's bid to participate in one event.
type Application struct {
	ID              string            `json:"id"`
	SubjectID       string            `json:"user_id"`
	EventID         string            `json:"event_id"`
	Motivation      string            `json:"motivation"`
	ContactPhone    string            `json:"phone"`
	ExtraNotes      *string           `json:"extra_notes,omitempty"`
	Status          ApplicationStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       *time.Time        `json:"updated_at,omitempty"`
	SubjectSnapshot SubjectSnapshot   `json:"user_info"`
}

// ApplicationView is an application enriched with display labels at read time.
type ApplicationView struct {
	Application
	EventTitle       string `json:"event_title"`
	OrganisationName string `json:"organisation_name"`
}

// Transition describes a compare-and-set status change on an application.
type Transition struct {
	ApplicationID string
	From          ApplicationStatus
	To            ApplicationStatus
	ExtraNotes    *string
	At            time.Time
}
