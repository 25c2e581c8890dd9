package database

import (
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// connect opens the MySQL pool with the configured limits.
func connect() (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(config.Cfg.Dns), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(config.Cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.Cfg.Database.MaxOpenConns)
	lifetime := time.Duration(config.Cfg.Database.MaxLifetime) * time.Minute
	sqlDB.SetConnMaxIdleTime(lifetime)
	sqlDB.SetConnMaxLifetime(lifetime)

	return db, nil
}

// ensureConnection verifies connectivity and reconnects when the pool died.
func ensureConnection() error {
	if DB == nil {
		db, err := connect()
		if err != nil {
			return err
		}
		DB = db
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		db, err := connect()
		if err != nil {
			return err
		}
		DB = db
	}
	return nil
}

// GetDB returns a healthy *gorm.DB, reconnecting if necessary.
func GetDB() (*gorm.DB, error) {
	if err := ensureConnection(); err != nil {
		logger.Error(err, "%v: failed to get connection", config.ModuleDatabase)
		return nil, err
	}
	return DB, nil
}

// Use installs an externally opened DB (tests run against in-memory sqlite).
func Use(db *gorm.DB) {
	DB = db
}
