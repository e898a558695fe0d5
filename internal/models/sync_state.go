package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState is the order sync watermark, one row per scope. Order sync uses
// "orders:<user_id>" scopes.
type SyncState struct {
	Scope         string         `gorm:"primaryKey;type:text"`
	WatermarkTS   *time.Time     `gorm:"type:timestamptz"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncState) TableName() string {
	return "sync_state"
}

func OrderSyncScope(userID string) string {
	return "orders:" + userID
}
