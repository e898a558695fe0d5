package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"optionchains/internal/config"
)

var ErrNoDSN = errors.New("db: dsn is empty")

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to Postgres and applies pool and session settings.
func Open(cfg config.DBConfig) (*DB, error) {
	if cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: NowUTC,
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	d := &DB{Gorm: gdb, SQL: sqldb}
	if err := SetTimezone(d, cfg.Timezone); err != nil {
		_ = Close(d)
		return nil, err
	}
	return d, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return errors.New("db: not connected")
	}
	return db.SQL.PingContext(ctx)
}

// SetTimezone sets the session time zone. Only zone names Go can resolve are
// accepted since SET does not take bind parameters.
func SetTimezone(db *DB, tz string) error {
	if tz == "" || db == nil || db.SQL == nil {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("db: invalid timezone %q: %w", tz, err)
	}
	_, err := db.SQL.Exec("SET TIME ZONE '" + tz + "'")
	return err
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
