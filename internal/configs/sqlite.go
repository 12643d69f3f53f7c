package config

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	repository "time-exchange.com/time-exchange/internal/repositories"
)

func NewDatabase(dsn string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// sqlite allows one writer; a single connection keeps transfers from
	// failing with "database is locked".
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("db handle failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	return db
}
