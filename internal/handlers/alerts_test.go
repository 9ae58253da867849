package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard/internal/alerts"
	"github.com/phishguard/phishguard/internal/database/testutil"
	"github.com/phishguard/phishguard/internal/storage"
	"github.com/phishguard/phishguard/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type alertAPI struct {
	store     *alerts.Store
	presenter *alerts.Presenter
	router    *gin.Engine
}

func newAlertAPI(t *testing.T) *alertAPI {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	store := alerts.NewStore(storage.NewDatabaseStore(db))
	presenter := alerts.NewPresenter(store, nil, alerts.WithDismissTimeout(time.Minute))
	presenter.Start()
	t.Cleanup(presenter.Stop)
	sweeper := alerts.NewSweeper(store)

	handler := NewAlertHandler(store, presenter, sweeper, nil)

	router := gin.New()
	group := router.Group("/api/alerts")
	{
		group.GET("", handler.List)
		group.GET("/stats", handler.Stats)
		group.POST("", handler.Create)
		group.POST("/read-all", handler.MarkAllRead)
		group.POST("/sweep", handler.Sweep)
		group.POST("/:id/read", handler.MarkRead)
		group.DELETE("/:id", handler.Delete)
		group.DELETE("", handler.Clear)
	}
	notifications := router.Group("/api/notifications")
	{
		notifications.GET("/visible", handler.Visible)
		notifications.POST("/:id/dismiss", handler.Dismiss)
	}

	return &alertAPI{store: store, presenter: presenter, router: router}
}

func (a *alertAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	a.router.ServeHTTP(recorder, req)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return recorder, payload
}

func decodeData[T any](t *testing.T, payload response.Response) T {
	t.Helper()
	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestAlertCreateAndList(t *testing.T) {
	api := newAlertAPI(t)

	recorder, payload := api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:      alerts.KindPhishingDetected,
		Content:   "spoofed login portal",
		RiskLevel: alerts.RiskCritical,
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	require.True(t, payload.Success)

	created := decodeData[alerts.AlertRecord](t, payload)
	require.NotEmpty(t, created.ID)
	require.Equal(t, alerts.SeverityCritical, created.Severity)

	recorder, payload = api.do(t, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	records := decodeData[[]alerts.AlertRecord](t, payload)
	require.Len(t, records, 1)
	require.NotNil(t, payload.Meta)
	require.Equal(t, 1, payload.Meta.Total)
	require.Equal(t, 1, payload.Meta.Unread)
}

func TestAlertListFilters(t *testing.T) {
	api := newAlertAPI(t)

	_, payload := api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:      alerts.KindPhishingDetected,
		Content:   "phish",
		RiskLevel: alerts.RiskHigh,
	})
	require.True(t, payload.Success)
	_, payload = api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:    alerts.KindSystemNotification,
		Title:   "Note",
		Content: "background info",
	})
	require.True(t, payload.Success)

	_, payload = api.do(t, http.MethodGet, "/api/alerts?kind=phishing_detected", nil)
	require.Len(t, decodeData[[]alerts.AlertRecord](t, payload), 1)

	_, payload = api.do(t, http.MethodGet, "/api/alerts?severity=high", nil)
	require.Len(t, decodeData[[]alerts.AlertRecord](t, payload), 1)

	recorder, _ := api.do(t, http.MethodGet, "/api/alerts?kind=bogus", nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAlertCreateDeduplicates(t *testing.T) {
	api := newAlertAPI(t)
	candidate := alerts.Candidate{
		Kind:      alerts.KindPhishingDetected,
		Content:   "same submission",
		RiskLevel: alerts.RiskHigh,
	}

	recorder, _ := api.do(t, http.MethodPost, "/api/alerts", candidate)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder, payload := api.do(t, http.MethodPost, "/api/alerts", candidate)
	require.Equal(t, http.StatusOK, recorder.Code)
	data := decodeData[map[string]bool](t, payload)
	require.True(t, data["deduplicated"])
	require.Len(t, api.store.Snapshot().Records, 1)
}

func TestAlertCreateRejectsInvalidPayload(t *testing.T) {
	api := newAlertAPI(t)

	recorder, payload := api.do(t, http.MethodPost, "/api/alerts", map[string]string{"kind": "phishing_detected"})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.False(t, payload.Success)
	require.NotNil(t, payload.Error)
}

func TestAlertMarkReadEndpoints(t *testing.T) {
	api := newAlertAPI(t)

	_, payload := api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:    alerts.KindSecurityWarning,
		Title:   "Warning",
		Content: "strange redirect",
	})
	created := decodeData[alerts.AlertRecord](t, payload)

	recorder, payload := api.do(t, http.MethodPost, "/api/alerts/"+created.ID+"/read", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, decodeData[map[string]any](t, payload)["read"].(bool))

	// Second read is idempotent, unread stays at zero.
	_, payload = api.do(t, http.MethodPost, "/api/alerts/"+created.ID+"/read", nil)
	data := decodeData[map[string]any](t, payload)
	require.False(t, data["read"].(bool))
	require.EqualValues(t, 0, data["unread"])

	_, payload = api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:    alerts.KindSecurityWarning,
		Title:   "Another",
		Content: "second warning",
	})
	require.True(t, payload.Success)

	_, payload = api.do(t, http.MethodPost, "/api/alerts/read-all", nil)
	require.EqualValues(t, 1, decodeData[map[string]any](t, payload)["updated"])
	require.Equal(t, 0, api.store.UnreadCount())
}

func TestAlertDeleteAndClear(t *testing.T) {
	api := newAlertAPI(t)

	_, payload := api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:    alerts.KindSystemNotification,
		Title:   "Note",
		Content: "to delete",
	})
	created := decodeData[alerts.AlertRecord](t, payload)

	recorder, payload := api.do(t, http.MethodDelete, "/api/alerts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, true, decodeData[map[string]any](t, payload)["deleted"])

	// Deleting an absent id is a no-op, not an error.
	recorder, payload = api.do(t, http.MethodDelete, "/api/alerts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, payload.Success)
	require.Equal(t, false, decodeData[map[string]any](t, payload)["deleted"])

	_, _ = api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:    alerts.KindSystemNotification,
		Title:   "Note",
		Content: "to clear",
	})
	recorder, _ = api.do(t, http.MethodDelete, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Empty(t, api.store.Snapshot().Records)
}

func TestAlertStatsEndpoint(t *testing.T) {
	api := newAlertAPI(t)

	_, _ = api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:      alerts.KindPhishingDetected,
		Content:   "critical phish",
		RiskLevel: alerts.RiskCritical,
	})

	_, payload := api.do(t, http.MethodGet, "/api/alerts/stats", nil)
	stats := decodeData[alerts.Stats](t, payload)
	require.Equal(t, 1, stats.TotalAlerts)
	require.Equal(t, 1, stats.UnreadCount)
	require.Equal(t, 1, stats.CriticalCount)
	require.Equal(t, 1, stats.PhishingCount)
}

func TestNotificationVisibleAndDismiss(t *testing.T) {
	api := newAlertAPI(t)

	_, payload := api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:      alerts.KindPhishingDetected,
		Content:   "promoted",
		RiskLevel: alerts.RiskCritical,
	})
	created := decodeData[alerts.AlertRecord](t, payload)

	_, payload = api.do(t, http.MethodGet, "/api/notifications/visible", nil)
	visible := decodeData[[]alerts.Notification](t, payload)
	require.Len(t, visible, 1)
	require.Equal(t, created.ID, visible[0].Alert.ID)

	_, payload = api.do(t, http.MethodPost, "/api/notifications/"+created.ID+"/dismiss", nil)
	require.True(t, decodeData[map[string]bool](t, payload)["dismissed"])

	_, payload = api.do(t, http.MethodGet, "/api/notifications/visible", nil)
	require.Empty(t, decodeData[[]alerts.Notification](t, payload))
	require.Equal(t, 0, api.store.UnreadCount())
}

func TestAlertSweepEndpoint(t *testing.T) {
	api := newAlertAPI(t)

	_, _ = api.do(t, http.MethodPost, "/api/alerts", alerts.Candidate{
		Kind:    alerts.KindSystemNotification,
		Title:   "Fresh",
		Content: "recent alert",
	})

	recorder, payload := api.do(t, http.MethodPost, "/api/alerts/sweep", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.EqualValues(t, 0, decodeData[map[string]any](t, payload)["removed"])
}
