package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a unique in-memory database per test (avoids schema leakage
// across tests) and migrates the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testNow() time.Time { return time.Now().UTC() }

// seedConfirmed inserts a confirmed subscription with the given email.
func seedConfirmed(t *testing.T, db *gorm.DB, email string) {
	t.Helper()
	sub, err := CreateSubscription(db, "Test Subscriber", email, testNow())
	if err != nil {
		t.Fatalf("seed subscription %q: %v", email, err)
	}
	if err := ConfirmSubscription(context.Background(), db, sub.ID); err != nil {
		t.Fatalf("confirm subscription %q: %v", email, err)
	}
}
