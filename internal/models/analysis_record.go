package models

import "gorm.io/datatypes"

// AnalysisRecord is one row of the analysis history: a submission source, the
// engine's verdict, and a short preview of what was analyzed.
type AnalysisRecord struct {
	BaseModel
	Source     string         `gorm:"size:16;index" json:"source"`
	RiskLevel  string         `gorm:"size:16;index" json:"risk_level"`
	RiskScore  float64        `json:"risk_score"`
	Confidence float64        `json:"confidence"`
	Indicators datatypes.JSON `gorm:"type:json" json:"indicators,omitempty"`
	Preview    string         `gorm:"size:512" json:"preview"`
}
