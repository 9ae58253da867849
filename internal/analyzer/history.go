package analyzer

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/phishguard/phishguard/internal/models"
)

// DefaultHistoryLimit caps how many history rows a single listing returns.
const DefaultHistoryLimit = 50

// History persists engine verdicts so past analyses can be reviewed.
type History struct {
	db *gorm.DB
}

// NewHistory constructs a History over the primary database.
func NewHistory(db *gorm.DB) *History {
	if db == nil {
		return nil
	}
	return &History{db: db}
}

// Record stores one verdict. Indicator marshalling failures drop the
// indicator list rather than the whole row.
func (h *History) Record(ctx context.Context, source, preview string, result *Result) error {
	if h == nil {
		return errors.New("analyzer: history not initialised")
	}
	if result == nil {
		return errors.New("analyzer: nil result")
	}

	var indicators datatypes.JSON
	if len(result.Indicators) > 0 {
		if raw, err := json.Marshal(result.Indicators); err == nil {
			indicators = datatypes.JSON(raw)
		}
	}

	record := models.AnalysisRecord{
		Source:     source,
		RiskLevel:  result.RiskLevel,
		RiskScore:  result.RiskScore,
		Confidence: result.Confidence,
		Indicators: indicators,
		Preview:    preview,
	}

	return h.db.WithContext(ctx).Create(&record).Error
}

// List returns the most recent history rows, newest first.
func (h *History) List(ctx context.Context, limit int) ([]models.AnalysisRecord, error) {
	if h == nil {
		return nil, errors.New("analyzer: history not initialised")
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	var records []models.AnalysisRecord
	err := h.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
