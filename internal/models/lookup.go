package models

import (
	"strings"
	"time"
)

// EventSummary is the slice of an event record this service reads.
type EventSummary struct {
	ID             string
	OrganisationID string
	Title          string
	EndDate        time.Time
}

type OrganisationSummary struct {
	ID   string
	Name string
}

type UserSummary struct {
	ID        string
	FirstName string
	LastName  string
	Username  string
	Email     string
}

// DisplayName is "first last", trimmed.
func (u UserSummary) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
