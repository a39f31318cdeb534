package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteer-service/internal/apperr"
	"volunteer-service/internal/db"
	"volunteer-service/internal/db/memstore"
	"volunteer-service/internal/logging"
	"volunteer-service/internal/models"
)

// lateDuplicateStore passes the existence check and then loses the insert, as
// when another request commits the same review in between.
type lateDuplicateStore struct {
	*memstore.Store
}

func (lateDuplicateStore) ReviewExists(context.Context, string, string, models.Direction) (bool, error) {
	return false, nil
}

func (lateDuplicateStore) CreateReview(context.Context, models.Review) error {
	return db.ErrDuplicate
}

func (f *fixture) acceptedApplication(t *testing.T, subjectID, eventID, orgID string) {
	t.Helper()
	app, err := f.submit(subjectID, eventID)
	require.NoError(t, err)
	require.NoError(t, f.apps.Decide(context.Background(), Decision{
		ApplicationID: app.ID, OrganisationID: orgID, Status: models.StatusAccepted,
	}))
}

func userToOrg(eventID, userID string, rating int) ReviewSubmission {
	return ReviewSubmission{Direction: models.UserToOrg, EventID: eventID, SubjectUserID: userID, Rating: rating}
}

func orgToUser(eventID, userID, orgID string, rating int) ReviewSubmission {
	return ReviewSubmission{Direction: models.OrgToUser, EventID: eventID, SubjectUserID: userID, OrganisationID: orgID, Rating: rating}
}

// Scenario A.
func TestReviewLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.acceptedApplication(t, "vol-1", "event-1", "org-1")

	_, err := f.reviews.Submit(ctx, userToOrg("event-1", "vol-1", 5))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	f.clock = eventEnd.Add(time.Hour)
	review, err := f.reviews.Submit(ctx, userToOrg("event-1", "vol-1", 5))
	require.NoError(t, err)
	assert.Equal(t, "org-1", review.OrganisationID)
	assert.Equal(t, models.UserToOrg, review.Direction)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, f.clock, review.CreatedAt)

	_, err = f.reviews.Submit(ctx, userToOrg("event-1", "vol-1", 5))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// The other direction is a separate slot.
	_, err = f.reviews.Submit(ctx, orgToUser("event-1", "vol-1", "org-1", 4))
	assert.NoError(t, err)
}

func TestReviewSubmit_EndTimeIsInclusive(t *testing.T) {
	f := newFixture()
	f.acceptedApplication(t, "vol-1", "event-1", "org-1")
	f.clock = eventEnd

	_, err := f.reviews.Submit(context.Background(), userToOrg("event-1", "vol-1", 3))
	assert.NoError(t, err)
}

func TestReviewSubmit_Eligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture()
		f.clock = eventEnd.Add(time.Hour)
		_, err := f.reviews.Submit(ctx, userToOrg("missing", "vol-1", 4))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("no application", func(t *testing.T) {
		f := newFixture()
		f.clock = eventEnd.Add(time.Hour)
		_, err := f.reviews.Submit(ctx, userToOrg("event-1", "vol-1", 4))
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("pending application", func(t *testing.T) {
		f := newFixture()
		_, err := f.submit("vol-1", "event-1")
		require.NoError(t, err)
		f.clock = eventEnd.Add(time.Hour)
		_, err = f.reviews.Submit(ctx, userToOrg("event-1", "vol-1", 4))
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("rejected application", func(t *testing.T) {
		f := newFixture()
		app, err := f.submit("vol-1", "event-1")
		require.NoError(t, err)
		require.NoError(t, f.apps.Decide(ctx, Decision{ApplicationID: app.ID, OrganisationID: "org-1", Status: models.StatusRejected}))
		f.clock = eventEnd.Add(time.Hour)
		_, err = f.reviews.Submit(ctx, orgToUser("event-1", "vol-1", "org-1", 2))
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})

	t.Run("org reviewing on an event it does not own", func(t *testing.T) {
		f := newFixture()
		f.acceptedApplication(t, "vol-1", "event-1", "org-1")
		f.clock = eventEnd.Add(time.Hour)
		_, err := f.reviews.Submit(ctx, orgToUser("event-1", "vol-1", "org-2", 2))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("rating out of range", func(t *testing.T) {
		f := newFixture()
		f.acceptedApplication(t, "vol-1", "event-1", "org-1")
		f.clock = eventEnd.Add(time.Hour)
		for _, rating := range []int{0, 6} {
			_, err := f.reviews.Submit(ctx, userToOrg("event-1", "vol-1", rating))
			assert.ErrorIs(t, err, apperr.ErrValidation)
		}
	})

	t.Run("unknown direction", func(t *testing.T) {
		f := newFixture()
		f.acceptedApplication(t, "vol-1", "event-1", "org-1")
		f.clock = eventEnd.Add(time.Hour)
		in := userToOrg("event-1", "vol-1", 4)
		in.Direction = "org_to_org"
		_, err := f.reviews.Submit(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("comment too long", func(t *testing.T) {
		f := newFixture()
		f.acceptedApplication(t, "vol-1", "event-1", "org-1")
		f.clock = eventEnd.Add(time.Hour)
		in := userToOrg("event-1", "vol-1", 4)
		long := string(make([]rune, 501))
		in.Comment = &long
		_, err := f.reviews.Submit(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestReviewReads_PublicProjection(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.acceptedApplication(t, "vol-1", "event-1", "org-1")
	f.acceptedApplication(t, "vol-2", "event-1", "org-1")
	f.clock = eventEnd.Add(time.Hour)

	_, err := f.reviews.Submit(ctx, ReviewSubmission{
		Direction: models.UserToOrg, EventID: "event-1", SubjectUserID: "vol-1", Rating: 5, Comment: strPtr("Well organised"),
	})
	require.NoError(t, err)
	_, err = f.reviews.Submit(ctx, userToOrg("event-1", "vol-2", 4))
	require.NoError(t, err)
	_, err = f.reviews.Submit(ctx, orgToUser("event-1", "vol-1", "org-1", 3))
	require.NoError(t, err)

	received, err := f.reviews.ReceivedByOrganisation(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, received, 2)
	names := []string{received[0].UserName, received[1].UserName}
	assert.ElementsMatch(t, []string{"Ana Petrovic", "Marko Jovic"}, names)
	for _, r := range received {
		assert.Equal(t, "Park Cleanup", r.EventName)
		assert.Equal(t, "Green City", r.OrganisationName)
	}

	given, err := f.reviews.GivenByOrganisation(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, given, 1)
	assert.Equal(t, 3, given[0].Rating)

	forUser, err := f.reviews.ForUser(ctx, "vol-1")
	require.NoError(t, err)
	require.Len(t, forUser, 1)
	assert.Equal(t, "Ana Petrovic", forUser[0].UserName)

	// A vanished user degrades to a placeholder instead of failing the read.
	f.store.DeleteUser("vol-2")
	received, err = f.reviews.ReceivedByOrganisation(ctx, "org-1")
	require.NoError(t, err)
	names = []string{received[0].UserName, received[1].UserName}
	assert.Contains(t, names, "Unknown user")
}

func TestReviewAverages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	avg, err := f.reviews.OrganisationAverage(ctx, "org-1")
	require.NoError(t, err)
	assert.Nil(t, avg.Value)

	avg, err = f.reviews.UserAverage(ctx, "vol-1")
	require.NoError(t, err)
	assert.Nil(t, avg.Value)

	f.acceptedApplication(t, "vol-1", "event-1", "org-1")
	f.acceptedApplication(t, "vol-2", "event-1", "org-1")
	f.acceptedApplication(t, "vol-1", "event-2", "org-1")
	f.clock = eventEnd.Add(time.Hour)

	_, err = f.reviews.Submit(ctx, userToOrg("event-1", "vol-1", 5))
	require.NoError(t, err)
	_, err = f.reviews.Submit(ctx, userToOrg("event-1", "vol-2", 4))
	require.NoError(t, err)
	_, err = f.reviews.Submit(ctx, userToOrg("event-2", "vol-1", 4))
	require.NoError(t, err)

	avg, err = f.reviews.OrganisationAverage(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, avg.Value)
	assert.Equal(t, 4.33, *avg.Value)

	// user_to_org ratings do not count towards the volunteer's own average.
	avg, err = f.reviews.UserAverage(ctx, "vol-1")
	require.NoError(t, err)
	assert.Nil(t, avg.Value)
}

func TestReviewSubmit_InsertDuplicateIsConflict(t *testing.T) {
	f := newFixture()
	f.acceptedApplication(t, "vol-1", "event-1", "org-1")
	f.clock = eventEnd.Add(time.Hour)

	engine := NewReviewEngine(lateDuplicateStore{f.store}, f.store, f.store, f.store, f.store, logging.NewNop())
	engine.now = func() time.Time { return f.clock }

	_, err := engine.Submit(context.Background(), userToOrg("event-1", "vol-1", 5))
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "a review for this event has already been submitted", apperr.Message(err))
}

func TestReviewSubmit_ConcurrentAttemptsYieldOneReview(t *testing.T) {
	f := newFixture()
	f.acceptedApplication(t, "vol-1", "event-1", "org-1")
	f.clock = eventEnd.Add(time.Hour)

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.reviews.Submit(context.Background(), userToOrg("event-1", "vol-1", 4))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	assert.Equal(t, 1, created)

	received, err := f.reviews.ReceivedByOrganisation(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Len(t, received, 1)
}
