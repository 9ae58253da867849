package models

import (
	"time"

	"gorm.io/datatypes"
)

// StateEntry is a durable key-value row holding serialized subsystem state,
// such as the persisted alert sequence.
type StateEntry struct {
	Key       string         `gorm:"primaryKey;size:256"`
	Value     datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
