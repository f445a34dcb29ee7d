package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"NetSentryAPI/internal/auth"
	"NetSentryAPI/internal/models"
	"NetSentryAPI/internal/service"
)

// stubCorrelator lets each test script the service behavior.
type stubCorrelator struct {
	acknowledgeFn func(id int64, comment, userID string) (*models.Alert, error)
	resolveFn     func(id int64, userID string) (*models.Alert, error)
	clearFn       func(id int64, userID string) error
	listFn        func(userID string) ([]models.Alert, error)
	statsFn       func(userID string) (*models.AlertStatistics, error)
}

func (s *stubCorrelator) CreateOrUpdate(ctx context.Context, signal models.MonitorSignal) (*models.Alert, error) {
	return nil, nil
}

func (s *stubCorrelator) Acknowledge(ctx context.Context, id int64, comment, userID string) (*models.Alert, error) {
	return s.acknowledgeFn(id, comment, userID)
}

func (s *stubCorrelator) Resolve(ctx context.Context, id int64, userID string) (*models.Alert, error) {
	return s.resolveFn(id, userID)
}

func (s *stubCorrelator) Clear(ctx context.Context, id int64, userID string) error {
	return s.clearFn(id, userID)
}

func (s *stubCorrelator) GetAlerts(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error) {
	return s.listFn(userID)
}

func (s *stubCorrelator) GetAlertsByStatus(ctx context.Context, userID, status string) ([]models.Alert, error) {
	return s.listFn(userID)
}

func (s *stubCorrelator) GetAlertsBySeverity(ctx context.Context, userID, severity string) ([]models.Alert, error) {
	return s.listFn(userID)
}

func (s *stubCorrelator) GetUnacknowledged(ctx context.Context, userID string) ([]models.Alert, error) {
	return s.listFn(userID)
}

func (s *stubCorrelator) GetAlertsSince(ctx context.Context, userID string, since time.Time) ([]models.Alert, error) {
	return s.listFn(userID)
}

func (s *stubCorrelator) GetAlertsBySource(ctx context.Context, userID, sourceType, sourceID string) ([]models.Alert, error) {
	return s.listFn(userID)
}

func (s *stubCorrelator) GetStatistics(ctx context.Context, userID string) (*models.AlertStatistics, error) {
	return s.statsFn(userID)
}

func newTestRouter(correlator service.IAlertCorrelator) *mux.Router {
	r := mux.NewRouter()
	NewAlertHandler(correlator, zap.NewNop()).RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body []byte, identity *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAcknowledge_ReturnsUpdatedAlert(t *testing.T) {
	stub := &stubCorrelator{
		acknowledgeFn: func(id int64, comment, userID string) (*models.Alert, error) {
			assert.Equal(t, int64(7), id)
			assert.Equal(t, "on it", comment)
			assert.Equal(t, "u1", userID)
			return &models.Alert{ID: id, UserID: userID, Status: models.StatusAcknowledged}, nil
		},
	}
	router := newTestRouter(stub)

	body, _ := json.Marshal(map[string]string{"comment": "on it"})
	rec := doRequest(t, router, "PUT", "/alerts/7/acknowledge", body, &auth.Identity{UserID: "u1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var alert models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alert))
	assert.Equal(t, models.StatusAcknowledged, alert.Status)
}

func TestAcknowledge_NotFoundMapsTo404(t *testing.T) {
	stub := &stubCorrelator{
		acknowledgeFn: func(id int64, comment, userID string) (*models.Alert, error) {
			return nil, service.ErrNotFound
		},
	}
	rec := doRequest(t, newTestRouter(stub), "PUT", "/alerts/99/acknowledge", nil, &auth.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolve_InvalidTransitionMapsTo409(t *testing.T) {
	stub := &stubCorrelator{
		resolveFn: func(id int64, userID string) (*models.Alert, error) {
			return nil, service.ErrInvalidTransition
		},
	}
	rec := doRequest(t, newTestRouter(stub), "PUT", "/alerts/7/resolve", nil, &auth.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClear_NoContentOnSuccess(t *testing.T) {
	cleared := false
	stub := &stubCorrelator{
		clearFn: func(id int64, userID string) error {
			cleared = true
			return nil
		},
	}
	rec := doRequest(t, newTestRouter(stub), "PUT", "/alerts/7/clear", nil, &auth.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, cleared)
}

func TestMutations_RejectBadID(t *testing.T) {
	rec := doRequest(t, newTestRouter(&stubCorrelator{}), "PUT", "/alerts/abc/resolve", nil, &auth.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMutations_RequireIdentity(t *testing.T) {
	rec := doRequest(t, newTestRouter(&stubCorrelator{}), "PUT", "/alerts/7/resolve", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestList_ReturnsOwnersAlerts(t *testing.T) {
	stub := &stubCorrelator{
		listFn: func(userID string) ([]models.Alert, error) {
			return []models.Alert{{ID: 1, UserID: userID, Title: "R1 down"}}, nil
		},
	}
	rec := doRequest(t, newTestRouter(stub), "GET", "/alerts", nil, &auth.Identity{UserID: "u1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "u1", alerts[0].UserID)
}

func TestStatistics_ReturnsCounts(t *testing.T) {
	stub := &stubCorrelator{
		statsFn: func(userID string) (*models.AlertStatistics, error) {
			return &models.AlertStatistics{ActiveCount: 2, CriticalCount: 1, UnacknowledgedCount: 2}, nil
		},
	}
	rec := doRequest(t, newTestRouter(stub), "GET", "/alerts/statistics", nil, &auth.Identity{UserID: "u1"})

	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.AlertStatistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.ActiveCount)
}

func TestList_RejectsBadPagination(t *testing.T) {
	stub := &stubCorrelator{
		listFn: func(userID string) ([]models.Alert, error) { return nil, nil },
	}
	router := newTestRouter(stub)

	for _, query := range []string{"?limit=-1", "?limit=abc", "?offset=-5", "?offset=x"} {
		rec := doRequest(t, router, "GET", "/alerts"+query, nil, &auth.Identity{UserID: "u1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestList_CapsOversizedLimit(t *testing.T) {
	var gotLimit int
	stub := &stubCorrelator{}
	stub.listFn = func(userID string) ([]models.Alert, error) { return nil, nil }
	router := mux.NewRouter()
	NewAlertHandler(&limitCapturingCorrelator{stubCorrelator: stub, limit: &gotLimit}, zap.NewNop()).RegisterRoutes(router)

	rec := doRequest(t, router, "GET", "/alerts?limit=100000", nil, &auth.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, gotLimit)
}

type limitCapturingCorrelator struct {
	*stubCorrelator
	limit *int
}

func (c *limitCapturingCorrelator) GetAlerts(ctx context.Context, userID string, limit, offset int) ([]models.Alert, error) {
	*c.limit = limit
	return nil, nil
}

func TestListRecent_RejectsBadTimestamp(t *testing.T) {
	stub := &stubCorrelator{
		listFn: func(userID string) ([]models.Alert, error) { return nil, nil },
	}
	rec := doRequest(t, newTestRouter(stub), "GET", "/alerts/recent?since=yesterday", nil, &auth.Identity{UserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
