// Package database opens the GORM connections used by the SQL storage
// engines.
package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/log"
	"go.uber.org/zap"
)

// NewGormLogger routes GORM's warnings and slow queries to the zap logger.
func NewGormLogger() logger.Interface {
	return logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,
		},
	)
}

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	log.Info("connecting to TimescaleDB...")
	db, err := Open(postgres.Open(connectionString))
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}

	return db, nil
}

// Open opens a GORM connection on any dialector. Every write is a single
// INSERT, so the implicit transaction around it is skipped.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(),
		SkipDefaultTransaction: true,
	})
}
