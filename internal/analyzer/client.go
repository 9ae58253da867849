package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/phishguard/phishguard/pkg/errors"
	"github.com/phishguard/phishguard/pkg/logger"
)

// DefaultTimeout bounds a single analysis request.
const DefaultTimeout = 15 * time.Second

const maxResponseBytes = 1 << 20

// Result is the analysis verdict returned by the detection engine.
type Result struct {
	RiskLevel  string   `json:"risk_level"`
	RiskScore  float64  `json:"risk_score"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators"`
	Guidance   any      `json:"guidance,omitempty"`
}

// TextInput is the payload for text analysis. Sender is optional and folds
// sender reputation into the verdict.
type TextInput struct {
	Text   string `json:"text"`
	Sender string `json:"sender,omitempty"`
}

// URLInput is the payload for URL analysis.
type URLInput struct {
	URL string `json:"url"`
}

// EmailInput is the payload for full email analysis.
type EmailInput struct {
	Subject     string   `json:"subject,omitempty"`
	Body        string   `json:"body"`
	Sender      string   `json:"sender,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// ImageInput is the payload for screenshot analysis. The engine accepts
// png, jpg, jpeg, gif, and bmp uploads.
type ImageInput struct {
	Filename string
	Data     io.Reader
}

var allowedImageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
}

// AllowedImageFile reports whether the filename carries an image extension
// the engine accepts.
func AllowedImageFile(filename string) bool {
	_, ok := allowedImageExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Client calls the detection engine's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// Option customises the Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithTimeout adjusts the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// NewClient constructs a Client for the engine at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, apperrors.NewBadRequest("analyzer base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid analyzer base URL: %v", err))
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logger.WithModule("analyzer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AnalyzeText submits free text, optionally with a sender address.
func (c *Client) AnalyzeText(ctx context.Context, input TextInput) (*Result, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, apperrors.NewBadRequest("text is required")
	}
	return c.post(ctx, "/api/analyze/text", input)
}

// AnalyzeURL submits a URL for analysis.
func (c *Client) AnalyzeURL(ctx context.Context, input URLInput) (*Result, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, apperrors.NewBadRequest("url is required")
	}
	return c.post(ctx, "/api/analyze/url", input)
}

// AnalyzeEmail submits an email's components for analysis.
func (c *Client) AnalyzeEmail(ctx context.Context, input EmailInput) (*Result, error) {
	if strings.TrimSpace(input.Body) == "" && strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewBadRequest("email subject or body is required")
	}
	return c.post(ctx, "/api/analyze/email", input)
}

// AnalyzeImage uploads a screenshot as a multipart form for analysis.
func (c *Client) AnalyzeImage(ctx context.Context, input ImageInput) (*Result, error) {
	if input.Data == nil {
		return nil, apperrors.NewBadRequest("image data is required")
	}
	if !AllowedImageFile(input.Filename) {
		return nil, apperrors.NewBadRequest("image must be a png, jpg, jpeg, gif, or bmp file")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(input.Filename))
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	if _, err := io.Copy(part, input.Data); err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	return c.postBody(ctx, "/api/analyze/image", writer.FormDataContentType(), &body)
}

func (c *Client) post(ctx context.Context, path string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return c.postBody(ctx, path, "application/json", bytes.NewReader(body))
}

func (c *Client) postBody(ctx context.Context, path, contentType string, body io.Reader) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("analysis request failed", zap.String("path", path), zap.Error(err))
		return nil, apperrors.ErrAnalyzerUnavailable.WithInternal(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.ErrAnalyzerUnavailable.WithInternal(err)
	}

	if resp.StatusCode != http.StatusOK {
		var remote struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &remote)
		c.log.Warn("analysis rejected",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("remote_error", remote.Error))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			message := remote.Error
			if message == "" {
				message = "analysis request rejected"
			}
			return nil, apperrors.NewBadRequest(message)
		}
		return nil, apperrors.ErrAnalyzerUnavailable
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperrors.ErrAnalyzerUnavailable.WithInternal(err)
	}
	return &result, nil
}
