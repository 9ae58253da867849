package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/phishguard/phishguard/internal/alerts"
	"github.com/phishguard/phishguard/internal/realtime"
	appErrors "github.com/phishguard/phishguard/pkg/errors"
	"github.com/phishguard/phishguard/pkg/response"
)

// AlertHandler exposes HTTP endpoints for the alert feed and the transient
// notification surface.
type AlertHandler struct {
	store     *alerts.Store
	presenter *alerts.Presenter
	sweeper   *alerts.Sweeper
	hub       *realtime.Hub
}

// NewAlertHandler constructs an alert handler.
func NewAlertHandler(store *alerts.Store, presenter *alerts.Presenter, sweeper *alerts.Sweeper, hub *realtime.Hub) *AlertHandler {
	return &AlertHandler{
		store:     store,
		presenter: presenter,
		sweeper:   sweeper,
		hub:       hub,
	}
}

// List returns the alert feed, optionally filtered by kind, severity, or
// unread state. Records come back newest first.
func (h *AlertHandler) List(c *gin.Context) {
	filter := alerts.Filter{
		Kind:       alerts.Kind(strings.TrimSpace(c.Query("kind"))),
		Severity:   alerts.Severity(strings.TrimSpace(c.Query("severity"))),
		UnreadOnly: parseBoolQuery(c, "unread"),
	}

	if filter.Kind != "" && !filter.Kind.Valid() {
		response.Error(c, appErrors.NewBadRequest("unknown kind filter"))
		return
	}
	if filter.Severity != "" && !filter.Severity.Valid() {
		response.Error(c, appErrors.NewBadRequest("unknown severity filter"))
		return
	}

	snap := h.store.Snapshot()
	records := alerts.FilterRecords(snap.Records, filter)

	response.SuccessWithMeta(c, http.StatusOK, records, &response.Meta{
		Total:  len(snap.Records),
		Unread: snap.Unread,
	})
}

// Stats returns derived feed statistics.
func (h *AlertHandler) Stats(c *gin.Context) {
	snap := h.store.Snapshot()
	response.Success(c, http.StatusOK, alerts.ComputeStats(snap.Records))
}

// Create logs a new alert. Duplicates inside the suppression window are
// silently dropped and reported as deduplicated.
func (h *AlertHandler) Create(c *gin.Context) {
	var candidate alerts.Candidate
	if !bindAndValidate(c, &candidate) {
		return
	}

	record, err := h.store.Add(requestContext(c), candidate)
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.Success(c, http.StatusOK, gin.H{"deduplicated": true})
		return
	}

	response.Success(c, http.StatusCreated, record)
}

// MarkRead flips one alert to read. Already-read and unknown ids report
// read=false without failing.
func (h *AlertHandler) MarkRead(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	changed := h.store.MarkRead(requestContext(c), id)
	response.Success(c, http.StatusOK, gin.H{"read": changed, "unread": h.store.UnreadCount()})
}

// MarkAllRead flips every unread alert to read.
func (h *AlertHandler) MarkAllRead(c *gin.Context) {
	updated := h.store.MarkAllRead(requestContext(c))
	response.Success(c, http.StatusOK, gin.H{"updated": updated})
}

// Delete removes one alert. Deleting an absent id is a no-op reported as
// deleted=false, matching MarkRead and Dismiss.
func (h *AlertHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	deleted := h.store.Remove(requestContext(c), id)
	response.Success(c, http.StatusOK, gin.H{"deleted": deleted})
}

// Clear empties the whole feed.
func (h *AlertHandler) Clear(c *gin.Context) {
	h.store.Clear(requestContext(c))
	response.Success(c, http.StatusOK, gin.H{"cleared": true})
}

// Sweep runs the retention sweep immediately and reports how many alerts it
// removed.
func (h *AlertHandler) Sweep(c *gin.Context) {
	if h.sweeper == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	removed := h.sweeper.RunOnce(requestContext(c))
	response.Success(c, http.StatusOK, gin.H{"removed": removed})
}

// Visible returns the currently showing notifications in promotion order.
func (h *AlertHandler) Visible(c *gin.Context) {
	if h.presenter == nil {
		response.Success(c, http.StatusOK, []alerts.Notification{})
		return
	}
	response.Success(c, http.StatusOK, h.presenter.Visible())
}

// Dismiss removes one notification from the visible surface and marks the
// underlying alert read.
func (h *AlertHandler) Dismiss(c *gin.Context) {
	if h.presenter == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	dismissed := h.presenter.Dismiss(requestContext(c), id)
	response.Success(c, http.StatusOK, gin.H{"dismissed": dismissed})
}

// Stream upgrades the connection to a WebSocket carrying alert and
// notification events.
func (h *AlertHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	h.hub.Serve(c.Writer, c.Request)
}

func parseBoolQuery(c *gin.Context, key string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
