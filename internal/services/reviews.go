package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"volunteer-service/internal/apperr"
	"volunteer-service/internal/db"
	"volunteer-service/internal/logging"
	"volunteer-service/internal/metrics"
	"volunteer-service/internal/models"
)

// ReviewSubmission rates one side of a finished event relationship.
// OrganisationID is the acting organisation and is only read for org_to_user.
type ReviewSubmission struct {
	Direction      models.Direction `json:"direction" validate:"required,oneof=user_to_org org_to_user"`
	EventID        string           `json:"event_id" validate:"required"`
	SubjectUserID  string           `json:"user_id" validate:"required"`
	OrganisationID string           `json:"organisation_id" validate:"required_if=Direction org_to_user"`
	Rating         int              `json:"rating" validate:"min=1,max=5"`
	Comment        *string          `json:"comment" validate:"omitempty,max=500"`
}

// ReviewEngine decides whether a rating may be recorded and serves the public
// read projections.
type ReviewEngine struct {
	reviews ReviewStore
	apps    ApplicationStore
	events  EventLookup
	orgs    OrgLookup
	users   UserLookup
	logger  *logging.Logger
	now     func() time.Time
}

func NewReviewEngine(
	reviews ReviewStore,
	apps ApplicationStore,
	events EventLookup,
	orgs OrgLookup,
	users UserLookup,
	logger *logging.Logger,
) *ReviewEngine {
	return &ReviewEngine{
		reviews: reviews,
		apps:    apps,
		events:  events,
		orgs:    orgs,
		users:   users,
		logger:  logger,
		now:     time.Now,
	}
}

// Submit checks, in order: the event exists, the acting organisation owns it
// (org_to_user only), the event has ended, the volunteer was accepted, and no
// review exists yet for (user, event, direction).
func (e *ReviewEngine) Submit(ctx context.Context, in ReviewSubmission) (models.Review, error) {
	if err := validateInput(in); err != nil {
		return models.Review{}, err
	}

	event, err := e.events.GetEvent(ctx, in.EventID)
	if errors.Is(err, db.ErrNotFound) {
		metrics.ReviewsRejected.WithLabelValues("not_found").Inc()
		return models.Review{}, apperr.NotFound("event not found")
	}
	if err != nil {
		return models.Review{}, fmt.Errorf("failed to load event %s: %w", in.EventID, err)
	}

	if in.Direction == models.OrgToUser && event.OrganisationID != in.OrganisationID {
		return models.Review{}, apperr.Forbidden("event does not belong to the organisation")
	}

	now := e.now().UTC()
	if now.Before(event.EndDate) {
		metrics.ReviewsRejected.WithLabelValues("not_finished").Inc()
		return models.Review{}, apperr.InvalidState("event has not finished yet")
	}

	app, err := e.apps.FindApplication(ctx, in.SubjectUserID, in.EventID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return models.Review{}, fmt.Errorf("failed to load application: %w", err)
	}
	if err != nil || app.Status != models.StatusAccepted {
		metrics.ReviewsRejected.WithLabelValues("not_accepted").Inc()
		return models.Review{}, apperr.InvalidState("user was not an accepted volunteer on this event")
	}

	exists, err := e.reviews.ReviewExists(ctx, in.SubjectUserID, in.EventID, in.Direction)
	if err != nil {
		return models.Review{}, fmt.Errorf("failed to check existing review: %w", err)
	}
	if exists {
		metrics.ReviewsRejected.WithLabelValues("duplicate").Inc()
		return models.Review{}, apperr.Conflict("a review for this event has already been submitted")
	}

	review := models.Review{
		ID:             uuid.New().String(),
		EventID:        in.EventID,
		SubjectUserID:  in.SubjectUserID,
		OrganisationID: event.OrganisationID,
		Direction:      in.Direction,
		Rating:         in.Rating,
		Comment:        in.Comment,
		CreatedAt:      now,
	}
	if err := e.reviews.CreateReview(ctx, review); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			metrics.ReviewsRejected.WithLabelValues("duplicate").Inc()
			return models.Review{}, apperr.Conflict("a review for this event has already been submitted")
		}
		return models.Review{}, fmt.Errorf("failed to create review: %w", err)
	}
	metrics.ReviewsSubmitted.WithLabelValues(string(review.Direction)).Inc()
	e.logger.Infof("Review %s created: %s event=%s user=%s org=%s rating=%d",
		review.ID, review.Direction, review.EventID, review.SubjectUserID, review.OrganisationID, review.Rating)
	return review, nil
}

// ReceivedByOrganisation lists what volunteers said about the organisation.
func (e *ReviewEngine) ReceivedByOrganisation(ctx context.Context, organisationID string) ([]models.PublicReview, error) {
	return e.list(ctx, models.ReviewFilter{OrganisationID: organisationID, Direction: models.UserToOrg})
}

// GivenByOrganisation lists what the organisation said about its volunteers.
func (e *ReviewEngine) GivenByOrganisation(ctx context.Context, organisationID string) ([]models.PublicReview, error) {
	return e.list(ctx, models.ReviewFilter{OrganisationID: organisationID, Direction: models.OrgToUser})
}

// ForUser lists what organisations said about the volunteer.
func (e *ReviewEngine) ForUser(ctx context.Context, userID string) ([]models.PublicReview, error) {
	return e.list(ctx, models.ReviewFilter{SubjectUserID: userID, Direction: models.OrgToUser})
}

func (e *ReviewEngine) OrganisationAverage(ctx context.Context, organisationID string) (models.AverageRating, error) {
	return e.average(ctx, models.ReviewFilter{OrganisationID: organisationID, Direction: models.UserToOrg})
}

func (e *ReviewEngine) UserAverage(ctx context.Context, userID string) (models.AverageRating, error) {
	return e.average(ctx, models.ReviewFilter{SubjectUserID: userID, Direction: models.OrgToUser})
}

func (e *ReviewEngine) list(ctx context.Context, f models.ReviewFilter) ([]models.PublicReview, error) {
	reviews, err := e.reviews.ListReviews(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	labels := newLabelResolver(ctx, e.events, e.orgs, e.users, e.logger)
	out := make([]models.PublicReview, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, models.PublicReview{
			EventName:        labels.eventTitle(r.EventID),
			UserName:         labels.userName(r.SubjectUserID),
			OrganisationName: labels.organisationName(r.OrganisationID),
			Rating:           r.Rating,
			Comment:          r.Comment,
			CreatedAt:        r.CreatedAt,
		})
	}
	return out, nil
}

// average is nil when nothing matches, never zero.
func (e *ReviewEngine) average(ctx context.Context, f models.ReviewFilter) (models.AverageRating, error) {
	avg, err := e.reviews.AverageRating(ctx, f)
	if err != nil {
		return models.AverageRating{}, fmt.Errorf("failed to compute average rating: %w", err)
	}
	if avg == nil {
		return models.AverageRating{}, nil
	}
	rounded := math.Round(*avg*100) / 100
	return models.AverageRating{Value: &rounded}, nil
}
