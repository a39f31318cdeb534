package services

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

// SubmitApplication is a volunteer's request to join an event.
type SubmitApplication struct {
	SubjectID  string  `json:"user_id" validate:"required"`
	EventID    string  `json:"event_id" validate:"required"`
	Motivation string  `json:"motivation" validate:"required,min=10,max=500"`
	Phone      string  `json:"phone" validate:"required,min=6,max=20"`
	ExtraNotes *string `json:"extra_notes" validate:"omitempty,max=500"`
}

// Decision is an organisation's verdict on a pending application.
type Decision struct {
	ApplicationID  string                   `json:"application_id" validate:"required"`
	OrganisationID string                   `json:"organisation_id" validate:"required"`
	Status         models.ApplicationStatus `json:"status" validate:"required,oneof=accepted rejected"`
	ExtraNotes     *string                  `json:"extra_notes" validate:"omitempty,max=500"`
}

// ApplicationManager owns the application state machine:
//
//	pending -> accepted   (owning organisation)
//	pending -> rejected   (owning organisation)
//	pending -> cancelled  (applying volunteer)
//
// Every other state is terminal.
type ApplicationManager struct {
	apps      ApplicationStore
	events    EventLookup
	orgs      OrgLookup
	users     UserLookup
	snapshots *SnapshotProjector
	publisher Publisher
	logger    *logging.Logger
	now       func() time.Time
}

func NewApplicationManager(
	apps ApplicationStore,
	events EventLookup,
	orgs OrgLookup,
	users UserLookup,
	snapshots *SnapshotProjector,
	publisher Publisher,
	logger *logging.Logger,
) *ApplicationManager {
	return &ApplicationManager{
		apps:      apps,
		events:    events,
		orgs:      orgs,
		users:     users,
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit creates a pending application and alerts the owning organisation.
// The alert is best effort: once the application is stored, a failed publish
// is logged and the application is still returned.
func (m *ApplicationManager) Submit(ctx context.Context, in SubmitApplication) (models.Application, error) {
	if err := validateInput(in); err != nil {
		return models.Application{}, err
	}

	event, err := m.events.GetEvent(ctx, in.EventID)
	if errors.Is(err, db.ErrNotFound) {
		return models.Application{}, apperr.NotFound("event not found")
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to load event %s: %w", in.EventID, err)
	}

	// Fast path only; the store's unique key decides races.
	if _, err := m.apps.FindApplication(ctx, in.SubjectID, in.EventID); err == nil {
		return models.Application{}, apperr.Conflict("you have already applied to this event")
	} else if !errors.Is(err, db.ErrNotFound) {
		return models.Application{}, fmt.Errorf("failed to check existing application: %w", err)
	}

	snapshot, err := m.snapshots.CaptureSubject(ctx, in.SubjectID)
	if err != nil {
		return models.Application{}, err
	}

	app := models.Application{
		ID:              uuid.New().String(),
		SubjectID:       in.SubjectID,
		EventID:         in.EventID,
		Motivation:      in.Motivation,
		ContactPhone:    in.Phone,
		ExtraNotes:      in.ExtraNotes,
		Status:          models.StatusPending,
		CreatedAt:       m.now().UTC(),
		SubjectSnapshot: snapshot,
	}
	if err := m.apps.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return models.Application{}, apperr.Conflict("you have already applied to this event")
		}
		return models.Application{}, fmt.Errorf("failed to create application: %w", err)
	}
	metrics.ApplicationsSubmitted.Inc()
	m.logger.Infof("Application %s created: user=%s event=%s", app.ID, app.SubjectID, app.EventID)

	message := fmt.Sprintf("New volunteer applied for your event: %s", event.Title)
	if _, err := m.publisher.Publish(ctx, event.OrganisationID, message); err != nil {
		m.logger.Errorf("Failed to notify organisation %s about application %s: %v", event.OrganisationID, app.ID, err)
	}
	return app, nil
}

// Decide accepts or rejects a pending application on behalf of the organisation
// owning its event.
func (m *ApplicationManager) Decide(ctx context.Context, d Decision) error {
	if err := validateInput(d); err != nil {
		return err
	}

	app, err := m.getApplication(ctx, d.ApplicationID)
	if err != nil {
		return err
	}

	event, err := m.events.GetEvent(ctx, app.EventID)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("event not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load event %s: %w", app.EventID, err)
	}
	if event.OrganisationID != d.OrganisationID {
		return apperr.Forbidden("you are not allowed to change this application")
	}

	if app.Status.Terminal() {
		return apperr.InvalidState("application is already %s", app.Status)
	}
	return m.transition(ctx, models.Transition{
		ApplicationID: app.ID,
		From:          models.StatusPending,
		To:            d.Status,
		ExtraNotes:    d.ExtraNotes,
		At:            m.now().UTC(),
	})
}

// Cancel withdraws the volunteer's own pending application.
func (m *ApplicationManager) Cancel(ctx context.Context, applicationID, subjectID string) error {
	app, err := m.getApplication(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.SubjectID != subjectID {
		return apperr.Forbidden("you cannot withdraw someone else's application")
	}
	if app.Status != models.StatusPending {
		return apperr.InvalidState("application has already been processed")
	}
	return m.transition(ctx, models.Transition{
		ApplicationID: app.ID,
		From:          models.StatusPending,
		To:            models.StatusCancelled,
		At:            m.now().UTC(),
	})
}

func (m *ApplicationManager) transition(ctx context.Context, t models.Transition) error {
	moved, err := m.apps.TransitionApplication(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to update application %s: %w", t.ApplicationID, err)
	}
	if !moved {
		// Someone else moved it out of pending between our read and write.
		return apperr.InvalidState("application has already been processed")
	}
	metrics.ApplicationTransitions.WithLabelValues(string(t.To)).Inc()
	m.logger.Infof("Application %s moved %s -> %s", t.ApplicationID, t.From, t.To)
	return nil
}

func (m *ApplicationManager) getApplication(ctx context.Context, id string) (models.Application, error) {
	app, err := m.apps.GetApplication(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return models.Application{}, apperr.NotFound("application not found")
	}
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to load application %s: %w", id, err)
	}
	return app, nil
}

// ListMine returns every application of the volunteer, cancelled ones included.
func (m *ApplicationManager) ListMine(ctx context.Context, subjectID string) ([]models.ApplicationView, error) {
	apps, err := m.apps.ListApplicationsBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	labels := newLabelResolver(ctx, m.events, m.orgs, m.users, m.logger)
	views := make([]models.ApplicationView, 0, len(apps))
	for _, a := range apps {
		views = append(views, models.ApplicationView{
			Application:      a,
			EventTitle:       labels.eventTitle(a.EventID),
			OrganisationName: labels.eventOrganisationName(a.EventID),
		})
	}
	return views, nil
}

// ListForEvent returns the non-cancelled applicants of one of the
// organisation's events.
func (m *ApplicationManager) ListForEvent(ctx context.Context, organisationID, eventID string) ([]models.ApplicationView, error) {
	event, err := m.events.GetEvent(ctx, eventID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load event %s: %w", eventID, err)
	}
	if err != nil || event.OrganisationID != organisationID {
		return nil, apperr.Forbidden("event does not belong to the organisation")
	}

	apps, err := m.apps.ListApplicationsByEvents(ctx, []string{eventID}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	labels := newLabelResolver(ctx, m.events, m.orgs, m.users, m.logger)
	orgName := labels.organisationName(organisationID)
	views := make([]models.ApplicationView, 0, len(apps))
	for _, a := range apps {
		views = append(views, models.ApplicationView{
			Application:      a,
			EventTitle:       event.Title,
			OrganisationName: orgName,
		})
	}
	return views, nil
}

// ListForOrganisation returns non-cancelled applications across all events of
// the organisation.
func (m *ApplicationManager) ListForOrganisation(ctx context.Context, organisationID string) ([]models.ApplicationView, error) {
	events, err := m.events.ListEventsByOrganisation(ctx, organisationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		return []models.ApplicationView{}, nil
	}

	titles := make(map[string]string, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		titles[e.ID] = e.Title
		ids = append(ids, e.ID)
	}

	apps, err := m.apps.ListApplicationsByEvents(ctx, ids, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	labels := newLabelResolver(ctx, m.events, m.orgs, m.users, m.logger)
	orgName := labels.organisationName(organisationID)
	views := make([]models.ApplicationView, 0, len(apps))
	for _, a := range apps {
		title, ok := titles[a.EventID]
		if !ok {
			title = unknownEvent
		}
		views = append(views, models.ApplicationView{
			Application:      a,
			EventTitle:       title,
			OrganisationName: orgName,
		})
	}
	return views, nil
}
