package persistence

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestBehaviorStore_MockGorm verifies the gorm wiring the behavior store
// rides on without needing a live MySQL server.
func TestBehaviorStore_MockGorm(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create gorm with mock: %v", err)
	}

	store := NewBehaviorStore(gormDB)
	if store == nil {
		t.Error("Expected store to be non-nil")
	}
}
