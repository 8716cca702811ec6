// Package database manages the PostgreSQL connection pool backing the crop
// profile and interaction rule stores, with retry logic and health checks.
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldplan/allocator/internal/utils/errors"
	"github.com/fieldplan/allocator/pkg/constants"
	cfgtypes "github.com/fieldplan/allocator/pkg/types/config"
)

var (
	dbInstance *gorm.DB

	maxRetryAttempts = 3
	retryBaseDelay   = time.Second
)

// NewConnection establishes a PostgreSQL connection with a bounded pool and
// startup retry logic.
func NewConnection(cfg *cfgtypes.DatabaseConfig) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.NewError(constants.ErrDatabaseOperation, "database configuration is required", nil)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err == nil {
			break
		}
		if attempt < maxRetryAttempts {
			time.Sleep(time.Duration(attempt) * retryBaseDelay)
		}
	}
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to connect to database after %d attempts", maxRetryAttempts), nil)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WrapError(err, "failed to get underlying sql.DB", nil)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.WrapError(err, "failed to ping database", nil)
	}

	dbInstance = db
	return db, nil
}

// GetConnection returns the active connection, verifying its health first.
func GetConnection() (*gorm.DB, error) {
	if dbInstance == nil {
		return nil, errors.NewError(constants.ErrDatabaseOperation, "database connection not initialized", nil)
	}
	if err := Ping(); err != nil {
		return nil, errors.WrapError(err, "database connection unhealthy", nil)
	}
	return dbInstance, nil
}

// CloseConnection closes the active connection, if any.
func CloseConnection() error {
	if dbInstance == nil {
		return nil
	}
	sqlDB, err := dbInstance.DB()
	if err != nil {
		return errors.WrapError(err, "failed to get underlying sql.DB", nil)
	}
	if err := sqlDB.Close(); err != nil {
		return errors.WrapError(err, "failed to close database connection", nil)
	}
	dbInstance = nil
	return nil
}

// Ping verifies the active connection's health with a bounded timeout.
func Ping() error {
	if dbInstance == nil {
		return errors.NewError(constants.ErrDatabaseOperation, "database connection not initialized", nil)
	}
	sqlDB, err := dbInstance.DB()
	if err != nil {
		return errors.WrapError(err, "failed to get underlying sql.DB", nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.WrapError(err, "failed to ping database", nil)
	}
	return nil
}
