package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RolledChain is a detected chain as stored for one user. Orders holds the
// full normalized order list.
type RolledChain struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID  string `gorm:"type:varchar(100);not null;uniqueIndex:uq_rolled_chains_user_chain,priority:1;index:idx_rolled_chains_user_status,priority:1"`
	ChainID string `gorm:"type:varchar(200);not null;uniqueIndex:uq_rolled_chains_user_chain,priority:2"`

	Symbol     string `gorm:"type:varchar(20);not null;index"`
	OptionType string `gorm:"type:varchar(10);not null"`
	Status     string `gorm:"type:varchar(20);not null;index:idx_rolled_chains_user_status,priority:2"`
	IsEnhanced bool   `gorm:"not null;default:false"`
	Trimmed    bool   `gorm:"not null;default:false"`

	OrderCount int `gorm:"not null"`
	RollCount  int `gorm:"not null"`

	TotalCredits decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalDebits  decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	NetPremium   decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalPnL     decimal.Decimal `gorm:"column:total_pnl;type:numeric(30,10);not null"`

	StartedAt time.Time `gorm:"type:timestamptz;not null;index"`
	EndedAt   time.Time `gorm:"type:timestamptz;not null"`

	OpenStrike     *decimal.Decimal `gorm:"type:numeric(20,6)"`
	OpenExpiration *time.Time       `gorm:"type:date"`

	Orders datatypes.JSON `gorm:"type:jsonb;not null"`

	RunID      string    `gorm:"type:varchar(64);index"`
	DetectedAt time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (RolledChain) TableName() string {
	return "rolled_chains"
}

// ChainSummary aggregates a user's stored chains.
type ChainSummary struct {
	Chains     int64           `json:"chains"`
	Active     int64           `json:"active"`
	Closed     int64           `json:"closed"`
	Enhanced   int64           `json:"enhanced"`
	NetPremium decimal.Decimal `json:"net_premium"`
}
