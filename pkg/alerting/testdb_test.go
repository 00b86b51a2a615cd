package alerting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Arletteportilla/vivero-alerts/pkg/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// One connection, or each pooled connection would see its own
	// empty in-memory database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Alert{}, &models.UserAlert{}, &models.SourceRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUserAlert(t *testing.T, db *gorm.DB, userID uuid.UUID, alert models.Alert) (uuid.UUID, uuid.UUID) {
	t.Helper()
	if alert.Status == "" {
		alert.Status = models.StatusPending
	}
	if alert.ScheduledAt.IsZero() {
		alert.ScheduledAt = time.Now()
	}
	if err := db.Create(&alert).Error; err != nil {
		t.Fatalf("seed alert: %v", err)
	}
	ua := models.UserAlert{UserID: userID, AlertID: alert.ID}
	if err := db.Create(&ua).Error; err != nil {
		t.Fatalf("seed user alert: %v", err)
	}
	return ua.ID, alert.ID
}
