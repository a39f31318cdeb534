package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"volunteer-service/internal/db/memstore"
	"volunteer-service/internal/logging"
	"volunteer-service/internal/models"
)

type published struct {
	organisationID string
	message        string
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, organisationID, message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.sent = append(p.sent, published{organisationID, message})
	return "notif-" + organisationID, nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

var errStoreDown = errors.New("store down")

type fixture struct {
	store     *memstore.Store
	publisher *fakePublisher
	apps      *ApplicationManager
	reviews   *ReviewEngine
	clock     time.Time
}

var eventEnd = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

// newFixture seeds org-1 owning event-1 and event-2, org-2 owning event-3, and
// volunteers vol-1 and vol-2. All events end at eventEnd; the clock starts two
// days earlier.
func newFixture() *fixture {
	s := memstore.New()
	s.PutOrganisation(models.OrganisationSummary{ID: "org-1", Name: "Green City"})
	s.PutOrganisation(models.OrganisationSummary{ID: "org-2", Name: "Food Bank"})
	s.PutEvent(models.EventSummary{ID: "event-1", OrganisationID: "org-1", Title: "Park Cleanup", EndDate: eventEnd})
	s.PutEvent(models.EventSummary{ID: "event-2", OrganisationID: "org-1", Title: "Tree Planting", EndDate: eventEnd})
	s.PutEvent(models.EventSummary{ID: "event-3", OrganisationID: "org-2", Title: "Soup Kitchen", EndDate: eventEnd})
	s.PutUser(models.UserSummary{ID: "vol-1", FirstName: "Ana", LastName: "Petrovic", Username: "ana", Email: "ana@example.com"})
	s.PutUser(models.UserSummary{ID: "vol-2", FirstName: "Marko", LastName: "Jovic", Username: "marko", Email: "marko@example.com"})

	f := &fixture{store: s, publisher: &fakePublisher{}, clock: eventEnd.Add(-48 * time.Hour)}
	logger := logging.NewNop()
	f.apps = NewApplicationManager(s, s, s, s, NewSnapshotProjector(s), f.publisher, logger)
	f.apps.now = func() time.Time { return f.clock }
	f.reviews = NewReviewEngine(s, s, s, s, s, logger)
	f.reviews.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) submit(subjectID, eventID string) (models.Application, error) {
	return f.apps.Submit(context.Background(), SubmitApplication{
		SubjectID:  subjectID,
		EventID:    eventID,
		Motivation: "I love helping out in my neighbourhood",
		Phone:      "+381601234567",
	})
}

func strPtr(s string) *string { return &s }
