package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Arletteportilla/vivero-alerts/pkg/models"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(tx *gorm.DB, alert *models.Alert) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(alert).Error
}

// CreateIgnoreDuplicate inserts the alert unless its dedup key already
// exists. Reports whether a row was actually written, so callers can
// skip the dependent user alert on a duplicate.
func (r *AlertRepository) CreateIgnoreDuplicate(tx *gorm.DB, alert *models.Alert) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(alert)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *AlertRepository) GetByID(id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.First(&alert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// HasAnyForRecord is the coarse idempotency guard: generation for a
// record is skipped entirely as soon as one alert references it.
func (r *AlertRepository) HasAnyForRecord(tx *gorm.DB, recordID uuid.UUID, kind models.RecordKind) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.Model(&models.Alert{}).
		Where("source_record_id = ? AND source_record_kind = ?", recordID, kind).
		Count(&count).Error
	return count > 0, err
}

// CleanupExpired flips pending alerts whose expiry has passed to
// dismissed. Returns the number of rows affected; re-running
// immediately affects zero.
func (r *AlertRepository) CleanupExpired(now time.Time) (int64, error) {
	res := r.db.Model(&models.Alert{}).
		Where("expires_at IS NOT NULL AND expires_at < ? AND status = ?", now, models.StatusPending).
		Updates(map[string]interface{}{"status": models.StatusDismissed, "updated_at": now})
	return res.RowsAffected, res.Error
}

// DismissOlderThan dismisses pending alerts created before cutoff.
func (r *AlertRepository) DismissOlderThan(cutoff, now time.Time) (int64, error) {
	res := r.db.Model(&models.Alert{}).
		Where("created_at < ? AND status = ?", cutoff, models.StatusPending).
		Updates(map[string]interface{}{"status": models.StatusDismissed, "updated_at": now})
	return res.RowsAffected, res.Error
}

// DuePending lists pending alerts whose scheduled time has arrived.
func (r *AlertRepository) DuePending(now time.Time) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.db.
		Where("scheduled_at <= ? AND status = ?", now, models.StatusPending).
		Order("scheduled_at ASC").
		Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepository) SetStatus(tx *gorm.DB, id uuid.UUID, status models.AlertStatus) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Model(&models.Alert{}).
		Where("id = ?", id).
		Update("status", status).Error
}

type AlertStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByRuleType map[string]int64 `json:"by_rule_type"`
	ByPriority map[string]int64 `json:"by_priority"`
}

func (r *AlertRepository) Stats() (*AlertStats, error) {
	stats := &AlertStats{
		ByStatus:   map[string]int64{},
		ByRuleType: map[string]int64{},
		ByPriority: map[string]int64{},
	}
	if err := r.db.Model(&models.Alert{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var rows []bucket

	if err := r.db.Model(&models.Alert{}).
		Select("status AS key, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, b := range rows {
		stats.ByStatus[b.Key] = b.Count
	}

	rows = nil
	if err := r.db.Model(&models.Alert{}).
		Select("rule_type AS key, COUNT(*) AS count").Group("rule_type").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, b := range rows {
		stats.ByRuleType[b.Key] = b.Count
	}

	rows = nil
	if err := r.db.Model(&models.Alert{}).
		Select("priority AS key, COUNT(*) AS count").Group("priority").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, b := range rows {
		stats.ByPriority[b.Key] = b.Count
	}
	return stats, nil
}
