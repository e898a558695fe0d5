package db

import (
	"optionchains/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.BrokerOrder{},
		&models.RolledChain{},
		&models.DetectionRun{},
		&models.SyncState{},
		&models.SystemSetting{},
	)
}
