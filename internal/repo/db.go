// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// PostgreSQL (production) and SQLite (pure Go driver, dev/tests), plus
// schema migrations.
//
// PostgreSQL is the intended production target: the delivery queue relies on
// SELECT ... FOR UPDATE SKIP LOCKED to let several worker instances drain the
// same table without double-claiming (see ClaimDeliveryTask). SQLite serves
// local development and the test suite; its single-writer model makes the
// locking clause unnecessary there.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-newsletter-backend/internal/domain"
)

// OpenPostgres connects to PostgreSQL, configures the pool, and installs the
// GORM OpenTelemetry plugin so queries show up as spans.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist (instead of the
	// sqlite "out of memory (14)" error surfacing later).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all persisted models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Subscription{},
		&domain.SubscriptionToken{},
		&domain.NewsletterIssue{},
		&domain.DeliveryTask{},
		&domain.IdempotencyRecord{},
	)
}
