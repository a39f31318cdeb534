// Package memstore keeps every record in process memory. It enforces the same
// uniqueness rules as the PostgreSQL schema and is selected with DB_DRIVER=memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"volunteer-service/internal/db"
	"volunteer-service/internal/models"
)

type appKey struct{ subjectID, eventID string }

type reviewKey struct {
	subjectID, eventID string
	dir                models.Direction
}

type Store struct {
	mu            sync.RWMutex
	applications  map[string]models.Application
	appIndex      map[appKey]string
	reviews       map[string]models.Review
	reviewIndex   map[reviewKey]string
	notifications map[string]models.Notification
	events        map[string]models.EventSummary
	organisations map[string]models.OrganisationSummary
	users         map[string]models.UserSummary
}

func New() *Store {
	return &Store{
		applications:  make(map[string]models.Application),
		appIndex:      make(map[appKey]string),
		reviews:       make(map[string]models.Review),
		reviewIndex:   make(map[reviewKey]string),
		notifications: make(map[string]models.Notification),
		events:        make(map[string]models.EventSummary),
		organisations: make(map[string]models.OrganisationSummary),
		users:         make(map[string]models.UserSummary),
	}
}

// Seeding for the records owned by other services.

func (s *Store) PutEvent(e models.EventSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

func (s *Store) PutOrganisation(o models.OrganisationSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organisations[o.ID] = o
}

func (s *Store) PutUser(u models.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// Applications

func (s *Store) CreateApplication(_ context.Context, a models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := appKey{a.SubjectID, a.EventID}
	if _, ok := s.appIndex[k]; ok {
		return fmt.Errorf("insert application: %w", db.ErrDuplicate)
	}
	if _, ok := s.applications[a.ID]; ok {
		return fmt.Errorf("insert application: %w", db.ErrDuplicate)
	}
	s.applications[a.ID] = a
	s.appIndex[k] = a.ID
	return nil
}

func (s *Store) GetApplication(_ context.Context, id string) (models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok {
		return models.Application{}, fmt.Errorf("get application %s: %w", id, db.ErrNotFound)
	}
	return a, nil
}

func (s *Store) FindApplication(_ context.Context, subjectID, eventID string) (models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.appIndex[appKey{subjectID, eventID}]
	if !ok {
		return models.Application{}, fmt.Errorf("find application: %w", db.ErrNotFound)
	}
	return s.applications[id], nil
}

func (s *Store) ListApplicationsBySubject(_ context.Context, subjectID string) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Application
	for _, a := range s.applications {
		if a.SubjectID == subjectID {
			list = append(list, a)
		}
	}
	sortApplications(list)
	return list, nil
}

func (s *Store) ListApplicationsByEvents(_ context.Context, eventIDs []string, excludeCancelled bool) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}
	var list []models.Application
	for _, a := range s.applications {
		if !wanted[a.EventID] {
			continue
		}
		if excludeCancelled && a.Status == models.StatusCancelled {
			continue
		}
		list = append(list, a)
	}
	sortApplications(list)
	return list, nil
}

func (s *Store) TransitionApplication(_ context.Context, t models.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[t.ApplicationID]
	if !ok || a.Status != t.From {
		return false, nil
	}
	a.Status = t.To
	if t.ExtraNotes != nil {
		notes := *t.ExtraNotes
		a.ExtraNotes = &notes
	}
	at := t.At
	a.UpdatedAt = &at
	s.applications[a.ID] = a
	return true, nil
}

func sortApplications(list []models.Application) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// Reviews

func (s *Store) CreateReview(_ context.Context, r models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := reviewKey{r.SubjectUserID, r.EventID, r.Direction}
	if _, ok := s.reviewIndex[k]; ok {
		return fmt.Errorf("insert review: %w", db.ErrDuplicate)
	}
	s.reviews[r.ID] = r
	s.reviewIndex[k] = r.ID
	return nil
}

func (s *Store) ReviewExists(_ context.Context, subjectUserID, eventID string, dir models.Direction) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.reviewIndex[reviewKey{subjectUserID, eventID, dir}]
	return ok, nil
}

func (s *Store) ListReviews(_ context.Context, f models.ReviewFilter) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Review
	for _, r := range s.reviews {
		if matches(r, f) {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *Store) AverageRating(_ context.Context, f models.ReviewFilter) (*float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum, n int
	for _, r := range s.reviews {
		if matches(r, f) {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := float64(sum) / float64(n)
	return &avg, nil
}

func matches(r models.Review, f models.ReviewFilter) bool {
	if f.OrganisationID != "" && r.OrganisationID != f.OrganisationID {
		return false
	}
	if f.SubjectUserID != "" && r.SubjectUserID != f.SubjectUserID {
		return false
	}
	if f.Direction != "" && r.Direction != f.Direction {
		return false
	}
	return true
}

// Notifications

func (s *Store) CreateNotification(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifications[n.ID]; ok {
		return fmt.Errorf("create notification: %w", db.ErrDuplicate)
	}
	s.notifications[n.ID] = n
	return nil
}

func (s *Store) ListNotifications(_ context.Context, organisationID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.Notification
	for _, n := range s.notifications {
		if n.OrganisationID == organisationID {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, organisationID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.OrganisationID != organisationID {
		return fmt.Errorf("notification %s: %w", id, db.ErrNotFound)
	}
	n.IsRead = true
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, organisationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var flipped int64
	for id, n := range s.notifications {
		if n.OrganisationID == organisationID && !n.IsRead {
			n.IsRead = true
			s.notifications[id] = n
			flipped++
		}
	}
	return flipped, nil
}

func (s *Store) CountUnreadNotifications(_ context.Context, organisationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.OrganisationID == organisationID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// Lookups

func (s *Store) GetEvent(_ context.Context, id string) (models.EventSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return models.EventSummary{}, fmt.Errorf("get event %s: %w", id, db.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListEventsByOrganisation(_ context.Context, organisationID string) ([]models.EventSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []models.EventSummary
	for _, e := range s.events {
		if e.OrganisationID == organisationID {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) GetOrganisation(_ context.Context, id string) (models.OrganisationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.organisations[id]
	if !ok {
		return models.OrganisationSummary{}, fmt.Errorf("get organisation %s: %w", id, db.ErrNotFound)
	}
	return o, nil
}

func (s *Store) GetUser(_ context.Context, id string) (models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.UserSummary{}, fmt.Errorf("get user %s: %w", id, db.ErrNotFound)
	}
	return u, nil
}
