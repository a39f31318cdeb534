package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteer-service/internal/auth"
	"volunteer-service/internal/config"
	"volunteer-service/internal/db/memstore"
	"volunteer-service/internal/logging"
	"volunteer-service/internal/models"
	"volunteer-service/internal/notification"
	"volunteer-service/internal/services"
)

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	store  *memstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var cfg config.Config
	cfg.API.BasePath = "/api/v0"
	cfg.Notification.MaxConnections = 10
	cfg.Notification.WriteTimeout = time.Second

	store := memstore.New()
	store.PutOrganisation(models.OrganisationSummary{ID: "org-1", Name: "Green City"})
	store.PutEvent(models.EventSummary{ID: "event-1", OrganisationID: "org-1", Title: "Park Cleanup", EndDate: time.Now().Add(-time.Hour)})
	store.PutEvent(models.EventSummary{ID: "event-future", OrganisationID: "org-1", Title: "Beach Day", EndDate: time.Now().Add(24 * time.Hour)})
	store.PutUser(models.UserSummary{ID: "vol-1", FirstName: "Ana", LastName: "Petrovic", Username: "ana", Email: "ana@example.com"})

	logger := logging.NewNop()
	hub := notification.NewHub(store, notification.NewRegistry(cfg.Notification.MaxConnections, logger), logger)
	apps := services.NewApplicationManager(store, store, store, store, services.NewSnapshotProjector(store), hub, logger)
	reviews := services.NewReviewEngine(store, store, store, store, store, logger)
	h := NewHandler(apps, reviews, hub, logger, cfg)

	return &testServer{router: NewRouter(h, auth.NewVerifier(testSecret), logger), store: store}
}

func token(t *testing.T, id string, role auth.Role) string {
	t.Helper()
	tok, err := auth.Sign(testSecret, auth.Principal{ID: id, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func applyBody(eventID string) gin.H {
	return gin.H{"event_id": eventID, "motivation": "I would love to help out", "phone": "+381601234567"}
}

func TestApplyDecideReviewFlow(t *testing.T) {
	s := newTestServer(t)
	vol := token(t, "vol-1", auth.RoleUser)
	org := token(t, "org-1", auth.RoleOrganisation)

	w := s.do(t, http.MethodPost, "/api/v0/applications", vol, applyBody("event-1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var applied struct {
		Message       string `json:"message"`
		ApplicationID string `json:"application_id"`
		Status        string `json:"status"`
	}
	decode(t, w, &applied)
	assert.Equal(t, "pending", applied.Status)
	assert.NotEmpty(t, applied.ApplicationID)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = s.do(t, http.MethodPost, "/api/v0/applications", vol, applyBody("event-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v0/notifications/unread-count", org, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread": 1}`, w.Body.String())

	w = s.do(t, http.MethodPatch, "/api/v0/applications/"+applied.ApplicationID, org, gin.H{"status": "accepted"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPatch, "/api/v0/applications/"+applied.ApplicationID+"/cancel", vol, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v0/reviews/user-to-org/event-1", vol, gin.H{"rating": 5, "comment": "Great"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v0/reviews/user-to-org/event-1", vol, gin.H{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v0/reviews/org-to-user/event-1/vol-1", org, gin.H{"rating": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v0/organisations/org-1/avg-rating", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"avg_rating": 5}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v0/users/vol-1/reviews", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reviews []models.PublicReview
	decode(t, w, &reviews)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Park Cleanup", reviews[0].EventName)
	assert.Equal(t, "Ana Petrovic", reviews[0].UserName)
	assert.Equal(t, "Green City", reviews[0].OrganisationName)
}

func TestApply_UnknownEventIs404(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v0/applications", token(t, "vol-1", auth.RoleUser), applyBody("nope"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "event not found", body["error"])
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v0/applications/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v0/applications/mine", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v0/notifications/mine", token(t, "vol-1", auth.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v0/applications", token(t, "org-1", auth.RoleOrganisation), applyBody("event-1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDecide_WrongOrganisationIs403(t *testing.T) {
	s := newTestServer(t)
	vol := token(t, "vol-1", auth.RoleUser)

	w := s.do(t, http.MethodPost, "/api/v0/applications", vol, applyBody("event-1"))
	require.Equal(t, http.StatusCreated, w.Code)
	var applied struct {
		ApplicationID string `json:"application_id"`
	}
	decode(t, w, &applied)

	w = s.do(t, http.MethodPatch, "/api/v0/applications/"+applied.ApplicationID, token(t, "org-2", auth.RoleOrganisation), gin.H{"status": "rejected"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v0/applications/missing", token(t, "org-1", auth.RoleOrganisation), gin.H{"status": "rejected"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReview_BeforeEventEndIs400(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v0/reviews/user-to-org/event-future", token(t, "vol-1", auth.RoleUser), gin.H{"rating": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "event has not finished yet", body["error"])
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	org := token(t, "org-1", auth.RoleOrganisation)

	w := s.do(t, http.MethodPost, "/api/v0/applications", token(t, "vol-1", auth.RoleUser), applyBody("event-1"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/v0/notifications/mine", org, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Notification
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "New volunteer applied for your event: Park Cleanup", list[0].Message)
	assert.False(t, list[0].IsRead)

	w = s.do(t, http.MethodPatch, "/api/v0/notifications/"+list[0].ID+"/read", token(t, "org-2", auth.RoleOrganisation), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v0/notifications/"+list[0].ID+"/read", org, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v0/notifications/read-all", org, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v0/notifications/unread-count", org, nil)
	assert.JSONEq(t, `{"unread": 0}`, w.Body.String())
}

func TestAverageRating_NoReviewsIsNull(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v0/users/vol-1/avg-rating", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"avg_rating": null}`, w.Body.String())
}

func TestInvalidBodyIs400(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v0/applications", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token(t, "vol-1", auth.RoleUser))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationsSocket_RejectsBadToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v0/notifications/ws?token=bad", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v0/notifications/ws?token="+token(t, "vol-1", auth.RoleUser), "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
	assert.Equal(t, http.StatusUnauthorized, statusFor(auth.ErrInvalidToken))
}
