package timescaledb

import (
	"context"
	"errors"
	"fmt"
)

// CheckHealth pings the database and runs a trivial query.
func (t *Storage) CheckHealth(ctx context.Context) error {
	if t.TimescaleDBConn == nil {
		return errors.New("TimescaleDB connection is nil")
	}

	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := t.TimescaleDBConn.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return fmt.Errorf("database query test failed: %w", err)
	}
	return nil
}
