package models

import (
	"time"

	"gorm.io/datatypes"
)

// BrokerOrder caches one raw order record per user. The payload is kept
// verbatim so detection can re-normalize it after parser changes.
type BrokerOrder struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	UserID  string `gorm:"type:varchar(100);not null;uniqueIndex:uq_broker_orders_user_order,priority:1;index:idx_broker_orders_user_created,priority:1"`
	OrderID string `gorm:"type:varchar(100);not null;uniqueIndex:uq_broker_orders_user_order,priority:2"`

	Symbol string `gorm:"type:varchar(20);index"`
	State  string `gorm:"type:varchar(30)"`
	// OrderCreatedAt is the broker's timestamp; nil when it could not be parsed.
	OrderCreatedAt *time.Time `gorm:"type:timestamptz;index:idx_broker_orders_user_created,priority:2"`

	Payload datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BrokerOrder) TableName() string {
	return "broker_orders"
}
