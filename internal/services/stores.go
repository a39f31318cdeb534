package services

import (
	"context"

	"volunteer-service/internal/models"
)

// ApplicationStore must enforce (subject, event) uniqueness itself and report a
// violation as db.ErrDuplicate.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, a models.Application) error
	GetApplication(ctx context.Context, id string) (models.Application, error)
	FindApplication(ctx context.Context, subjectID, eventID string) (models.Application, error)
	ListApplicationsBySubject(ctx context.Context, subjectID string) ([]models.Application, error)
	ListApplicationsByEvents(ctx context.Context, eventIDs []string, excludeCancelled bool) ([]models.Application, error)
	TransitionApplication(ctx context.Context, t models.Transition) (bool, error)
}

// ReviewStore must enforce (subject, event, direction) uniqueness itself.
type ReviewStore interface {
	CreateReview(ctx context.Context, r models.Review) error
	ReviewExists(ctx context.Context, subjectUserID, eventID string, dir models.Direction) (bool, error)
	ListReviews(ctx context.Context, f models.ReviewFilter) ([]models.Review, error)
	AverageRating(ctx context.Context, f models.ReviewFilter) (*float64, error)
}

type EventLookup interface {
	GetEvent(ctx context.Context, id string) (models.EventSummary, error)
	ListEventsByOrganisation(ctx context.Context, organisationID string) ([]models.EventSummary, error)
}

type OrgLookup interface {
	GetOrganisation(ctx context.Context, id string) (models.OrganisationSummary, error)
}

type UserLookup interface {
	GetUser(ctx context.Context, id string) (models.UserSummary, error)
}

// Publisher records a notification for an organisation and pushes it to
// whoever is listening. It returns the notification id.
type Publisher interface {
	Publish(ctx context.Context, organisationID, message string) (string, error)
}
