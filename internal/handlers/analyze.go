package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phishguard/phishguard/internal/alerts"
	"github.com/phishguard/phishguard/internal/analyzer"
	appErrors "github.com/phishguard/phishguard/pkg/errors"
	"github.com/phishguard/phishguard/pkg/logger"
	"github.com/phishguard/phishguard/pkg/response"
)

// maxAnalyzePayload bounds submitted content. Larger submissions are rejected
// before they reach the detection engine.
const maxAnalyzePayload = 256 << 10

// maxImagePayload matches the engine's 16 MiB upload cap.
const maxImagePayload = 16 << 20

// contentPreviewLimit caps how much of the submission is echoed into an alert.
const contentPreviewLimit = 200

// AnalyzeHandler proxies submissions to the detection engine and logs alerts
// for risky verdicts.
type AnalyzeHandler struct {
	client  *analyzer.Client
	store   *alerts.Store
	history *analyzer.History
	log     *zap.Logger
}

// NewAnalyzeHandler constructs an analyze handler. The history may be nil when
// verdict persistence is not wanted.
func NewAnalyzeHandler(client *analyzer.Client, store *alerts.Store, history *analyzer.History) *AnalyzeHandler {
	return &AnalyzeHandler{
		client:  client,
		store:   store,
		history: history,
		log:     logger.WithModule("analyze"),
	}
}

type analyzeTextRequest struct {
	Text   string `json:"text" validate:"required"`
	Sender string `json:"sender" validate:"omitempty,max=320"`
}

type analyzeURLRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

type analyzeEmailRequest struct {
	Subject     string   `json:"subject" validate:"omitempty,max=998"`
	Body        string   `json:"body" validate:"omitempty"`
	Sender      string   `json:"sender" validate:"omitempty,max=320"`
	Attachments []string `json:"attachments" validate:"omitempty"`
}

// Text analyzes free text, optionally with a sender address.
func (h *AnalyzeHandler) Text(c *gin.Context) {
	if !h.checkPayloadSize(c) {
		return
	}

	var payload analyzeTextRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.client.AnalyzeText(requestContext(c), analyzer.TextInput{
		Text:   payload.Text,
		Sender: payload.Sender,
	})
	h.finish(c, result, err, payload.Text, "text")
}

// URL analyzes a single URL.
func (h *AnalyzeHandler) URL(c *gin.Context) {
	if !h.checkPayloadSize(c) {
		return
	}

	var payload analyzeURLRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	result, err := h.client.AnalyzeURL(requestContext(c), analyzer.URLInput{URL: payload.URL})
	h.finish(c, result, err, payload.URL, "url")
}

// Email analyzes an email's components.
func (h *AnalyzeHandler) Email(c *gin.Context) {
	if !h.checkPayloadSize(c) {
		return
	}

	var payload analyzeEmailRequest
	if !bindAndValidate(c, &payload) {
		return
	}
	if strings.TrimSpace(payload.Subject) == "" && strings.TrimSpace(payload.Body) == "" {
		response.Error(c, appErrors.NewBadRequest("email subject or body is required"))
		return
	}

	result, err := h.client.AnalyzeEmail(requestContext(c), analyzer.EmailInput{
		Subject:     payload.Subject,
		Body:        payload.Body,
		Sender:      payload.Sender,
		Attachments: payload.Attachments,
	})

	subject := strings.TrimSpace(payload.Subject)
	if subject == "" {
		subject = payload.Body
	}
	h.finish(c, result, err, subject, "email")
}

// Image analyzes an uploaded screenshot. The file arrives as the "image"
// field of a multipart form.
func (h *AnalyzeHandler) Image(c *gin.Context) {
	if c.Request != nil && c.Request.ContentLength > maxImagePayload {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("image file is required"))
		return
	}
	defer file.Close()

	if !analyzer.AllowedImageFile(header.Filename) {
		response.Error(c, appErrors.NewBadRequest("image must be a png, jpg, jpeg, gif, or bmp file"))
		return
	}

	result, err := h.client.AnalyzeImage(requestContext(c), analyzer.ImageInput{
		Filename: header.Filename,
		Data:     file,
	})
	h.finish(c, result, err, header.Filename, "image")
}

// finish records an alert for the verdict when warranted and writes the
// response. Alert logging is best effort and never fails the analysis call.
func (h *AnalyzeHandler) finish(c *gin.Context, result *analyzer.Result, err error, content, source string) {
	if err != nil {
		h.recordEngineFailure(c, err, source)
		response.Error(c, err)
		return
	}

	h.recordVerdict(c, result, content, source)
	if h.history != nil {
		if err := h.history.Record(requestContext(c), source, preview(content), result); err != nil {
			h.log.Warn("record analysis history failed", zap.Error(err))
		}
	}
	response.Success(c, http.StatusOK, result)
}

// History lists recent engine verdicts, newest first.
func (h *AnalyzeHandler) History(c *gin.Context) {
	if h.history == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}

	records, err := h.history.List(requestContext(c), parseIntQuery(c, "limit", analyzer.DefaultHistoryLimit))
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	response.Success(c, http.StatusOK, records)
}

func (h *AnalyzeHandler) recordVerdict(c *gin.Context, result *analyzer.Result, content, source string) {
	if h.store == nil || result == nil {
		return
	}

	risk := alerts.RiskLevel(strings.ToLower(strings.TrimSpace(result.RiskLevel)))
	switch risk {
	case alerts.RiskMedium, alerts.RiskHigh, alerts.RiskCritical:
	default:
		return
	}

	details := map[string]string{
		"source":     source,
		"risk_score": fmt.Sprintf("%.0f", result.RiskScore),
		"confidence": fmt.Sprintf("%.2f", result.Confidence),
	}
	if len(result.Indicators) > 0 {
		details["indicators"] = strings.Join(result.Indicators, ",")
	}

	_, err := h.store.Add(requestContext(c), alerts.Candidate{
		Kind:      alerts.KindPhishingDetected,
		Content:   preview(content),
		RiskLevel: risk,
		Details:   details,
	})
	if err != nil {
		h.log.Warn("record verdict alert failed", zap.Error(err))
	}
}

func (h *AnalyzeHandler) recordEngineFailure(c *gin.Context, err error, source string) {
	var appErr *appErrors.AppError
	if h.store == nil || !errors.As(err, &appErr) || appErr.Code != appErrors.ErrAnalyzerUnavailable.Code {
		return
	}

	_, addErr := h.store.Add(requestContext(c), alerts.Candidate{
		Kind:     alerts.KindSystemNotification,
		Severity: alerts.SeverityMedium,
		Title:    "Analysis service unreachable",
		Content:  fmt.Sprintf("A %s submission could not be analyzed because the detection engine did not respond.", source),
		Details:  map[string]string{"source": source},
	})
	if addErr != nil {
		h.log.Warn("record engine failure alert failed", zap.Error(addErr))
	}
}

func (h *AnalyzeHandler) checkPayloadSize(c *gin.Context) bool {
	if c.Request != nil && c.Request.ContentLength > maxAnalyzePayload {
		response.Error(c, appErrors.ErrPayloadTooLarge)
		return false
	}
	return true
}

func preview(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= contentPreviewLimit {
		return content
	}
	cut := content[:contentPreviewLimit]
	// Avoid splitting a multi-byte rune at the boundary.
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}
