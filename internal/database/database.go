package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// ErrUnavailable marks a pool that was created but could not reach the store
// or apply the schema. The returned *gorm.DB is still usable once the store
// comes back.
var ErrUnavailable = errors.New("database unavailable")

// Connect opens the configured store, verifies connectivity and creates the
// schema. On ErrUnavailable the pool is returned alongside the error so the
// caller can decide whether to keep serving.
func Connect(ctx context.Context, cfg *config.AppConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Ping(ctx, db); err != nil {
		return db, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := Migrate(ctx, db); err != nil {
		return db, fmt.Errorf("%w: migration failed: %w", ErrUnavailable, err)
	}
	return db, nil
}

// Open builds the connection pool without dialing the server.
func Open(cfg *config.AppConfig) (*gorm.DB, error) {
	dialector, err := newDialector(cfg.Database)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:               logger.Default.LogMode(resolveLogLevel(cfg)),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve sql db: %w", err)
	}
	if cfg.Database.Driver == config.DriverSQLite {
		// SQLite has a single writer; serialize through one connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	}
	return db, nil
}

func newDialector(cfg config.DatabaseRuntimeConfig) (gorm.Dialector, error) {
	dsn := cfg.DSNValue()
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         191,
			SkipInitializeWithVersion: true,
			// DEFAULT CURRENT_TIMESTAMP needs a datetime without fractional seconds.
			DisableDatetimePrecision: true,
		}), nil
	case config.DriverPostgres:
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), nil
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

// Ping checks that the store is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// Migrate creates the tables the service writes to.
func Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(
		&models.SubscriberModel{},
		&models.OptionModel{},
	)
}

// Close releases the pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
