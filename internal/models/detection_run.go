package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// DetectionRun records one detection pass for a user, including the run report.
type DetectionRun struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	RunID  string `gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID string `gorm:"type:varchar(100);not null;index"`

	FullResync bool   `gorm:"not null;default:false"`
	Trigger    string `gorm:"type:varchar(20)"`
	Status     string `gorm:"type:varchar(20);not null;index"`

	OrdersSeen     int `gorm:"not null;default:0"`
	ChainsAccepted int `gorm:"not null;default:0"`
	ChainsRejected int `gorm:"not null;default:0"`

	Report datatypes.JSON `gorm:"type:jsonb"`
	Error  *string        `gorm:"type:text"`

	StartedAt  time.Time  `gorm:"type:timestamptz;not null;index"`
	FinishedAt *time.Time `gorm:"type:timestamptz"`
}

func (DetectionRun) TableName() string {
	return "detection_runs"
}
