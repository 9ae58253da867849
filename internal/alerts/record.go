package alerts

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/phishguard/phishguard/pkg/errors"
	appvalidator "github.com/phishguard/phishguard/pkg/validator"
)

func init() {
	appvalidator.MustRegisterValidation("alert_kind", func(fl validator.FieldLevel) bool {
		return Kind(fl.Field().String()).Valid()
	})
	appvalidator.MustRegisterValidation("alert_severity", func(fl validator.FieldLevel) bool {
		return Severity(fl.Field().String()).Valid()
	})
	appvalidator.MustRegisterValidation("alert_risk", func(fl validator.FieldLevel) bool {
		return RiskLevel(fl.Field().String()).Valid()
	})
}

// Kind classifies the source of an alert.
type Kind string

// Alert kinds produced by the dashboard collaborators.
const (
	KindPhishingDetected   Kind = "phishing_detected"
	KindSecurityWarning    Kind = "security_warning"
	KindSystemNotification Kind = "system_notification"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	switch k {
	case KindPhishingDetected, KindSecurityWarning, KindSystemNotification:
		return true
	}
	return false
}

// Severity drives colour, priority, and the audible cue.
type Severity string

// Severities ordered roughly by urgency.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeveritySuccess  Severity = "success"
	SeverityInfo     Severity = "info"
)

// Valid reports whether the severity is one of the known values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeveritySuccess, SeverityInfo:
		return true
	}
	return false
}

// RiskLevel is the analyzer's verdict attached to phishing alerts.
type RiskLevel string

// Risk levels reported by the analysis service.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether the risk level is one of the known values.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// AlertRecord is a single logged event. All fields except Read are immutable
// once the record is created by the store.
type AlertRecord struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Kind      Kind              `json:"kind"`
	Severity  Severity          `json:"severity"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	RiskLevel RiskLevel         `json:"risk_level,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Read      bool              `json:"read"`
}

func (r *AlertRecord) clone() *AlertRecord {
	if r == nil {
		return nil
	}
	cpy := *r
	if r.Details != nil {
		cpy.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			cpy.Details[k] = v
		}
	}
	return &cpy
}

// Candidate is the caller-supplied portion of an alert. The store assigns
// ID, CreatedAt, and the unread flag.
type Candidate struct {
	Kind      Kind              `json:"kind" validate:"required,alert_kind"`
	Severity  Severity          `json:"severity" validate:"omitempty,alert_severity"`
	Title     string            `json:"title" validate:"omitempty,max=255"`
	Content   string            `json:"content" validate:"required"`
	RiskLevel RiskLevel         `json:"risk_level" validate:"omitempty,alert_risk"`
	Details   map[string]string `json:"details" validate:"omitempty"`
}

// normalize fills kind-specific defaults and reports validation failures as
// bad-request errors. Phishing candidates inherit their severity from the
// analyzer risk level when the caller leaves it empty.
func (c *Candidate) normalize() error {
	c.Title = strings.TrimSpace(c.Title)
	c.Content = strings.TrimSpace(c.Content)

	if err := appvalidator.ValidateStruct(c); err != nil {
		return apperrors.NewBadRequest(err.Error())
	}

	if c.RiskLevel != "" && c.Kind != KindPhishingDetected {
		return apperrors.NewBadRequest("risk_level is only meaningful for phishing_detected alerts")
	}

	if c.Severity == "" {
		switch {
		case c.Kind == KindPhishingDetected && c.RiskLevel != "":
			c.Severity = severityForRisk(c.RiskLevel)
		default:
			c.Severity = SeverityInfo
		}
	}

	if c.Title == "" {
		if c.Kind != KindPhishingDetected {
			return apperrors.NewBadRequest("title is required")
		}
		c.Title = "Phishing threat detected"
	}

	return nil
}

func severityForRisk(risk RiskLevel) Severity {
	switch risk {
	case RiskCritical:
		return SeverityCritical
	case RiskHigh:
		return SeverityHigh
	case RiskMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
