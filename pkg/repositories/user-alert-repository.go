package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Arletteportilla/vivero-alerts/pkg/models"
)

type UserAlertRepository struct {
	db *gorm.DB
}

func NewUserAlertRepository(db *gorm.DB) *UserAlertRepository {
	return &UserAlertRepository{db: db}
}

func (r *UserAlertRepository) Create(tx *gorm.DB, ua *models.UserAlert) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Create(ua).Error
}

func (r *UserAlertRepository) Get(userID, alertID uuid.UUID) (*models.UserAlert, error) {
	var ua models.UserAlert
	err := r.db.Preload("Alert").
		First(&ua, "user_id = ? AND alert_id = ?", userID, alertID).Error
	if err != nil {
		return nil, err
	}
	return &ua, nil
}

// byUser joins alerts so results can be ordered and filtered by the
// alert's own columns while still preloading the embedded Alert.
func (r *UserAlertRepository) byUser(userID uuid.UUID) *gorm.DB {
	return r.db.Model(&models.UserAlert{}).
		Joins("JOIN alerts ON alerts.id = user_alerts.alert_id").
		Where("user_alerts.user_id = ?", userID).
		Preload("Alert").
		Order("alerts.scheduled_at DESC, alerts.created_at DESC")
}

func (r *UserAlertRepository) ListByUser(userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.UserAlert, error) {
	q := r.byUser(userID)
	if unreadOnly {
		q = q.Where("user_alerts.is_read = ? AND user_alerts.is_dismissed = ?", false, false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var uas []models.UserAlert
	err := q.Find(&uas).Error
	return uas, err
}

func (r *UserAlertRepository) ListByType(userID uuid.UUID, rule models.RuleType) ([]models.UserAlert, error) {
	var uas []models.UserAlert
	err := r.byUser(userID).
		Where("alerts.rule_type = ?", rule).
		Find(&uas).Error
	return uas, err
}

// ListByPriority excludes dismissed rows, matching the read-side query
// the UI relies on.
func (r *UserAlertRepository) ListByPriority(userID uuid.UUID, priority models.Priority) ([]models.UserAlert, error) {
	var uas []models.UserAlert
	err := r.byUser(userID).
		Where("alerts.priority = ? AND user_alerts.is_dismissed = ?", priority, false).
		Find(&uas).Error
	return uas, err
}

func (r *UserAlertRepository) CountByUser(userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Model(&models.UserAlert{}).
		Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *UserAlertRepository) CountUnread(userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Model(&models.UserAlert{}).
		Where("user_id = ? AND is_read = ? AND is_dismissed = ?", userID, false, false).
		Count(&n).Error
	return n, err
}

func (r *UserAlertRepository) CountUnreadByPriority(userID uuid.UUID, priority models.Priority) (int64, error) {
	var n int64
	err := r.db.Model(&models.UserAlert{}).
		Joins("JOIN alerts ON alerts.id = user_alerts.alert_id").
		Where("user_alerts.user_id = ? AND user_alerts.is_read = ? AND user_alerts.is_dismissed = ? AND alerts.priority = ?",
			userID, false, false, priority).
		Count(&n).Error
	return n, err
}

func (r *UserAlertRepository) CountRecent(userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.Model(&models.UserAlert{}).
		Joins("JOIN alerts ON alerts.id = user_alerts.alert_id").
		Where("user_alerts.user_id = ? AND alerts.created_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}

// ListUnread returns the unread rows matching the optional filters.
// Used by the bulk actions so the shared alert status can be flipped
// alongside each row.
func (r *UserAlertRepository) ListUnread(userID uuid.UUID, rule models.RuleType, priority models.Priority) ([]models.UserAlert, error) {
	q := r.db.Model(&models.UserAlert{}).
		Joins("JOIN alerts ON alerts.id = user_alerts.alert_id").
		Where("user_alerts.user_id = ? AND user_alerts.is_read = ?", userID, false)
	if rule != "" {
		q = q.Where("alerts.rule_type = ?", rule)
	}
	if priority != "" {
		q = q.Where("alerts.priority = ?", priority)
	}
	var uas []models.UserAlert
	err := q.Find(&uas).Error
	return uas, err
}

// ListReadNotDismissed returns rows that are read but not yet
// dismissed, matching the optional filters.
func (r *UserAlertRepository) ListReadNotDismissed(userID uuid.UUID, rule models.RuleType, priority models.Priority) ([]models.UserAlert, error) {
	q := r.db.Model(&models.UserAlert{}).
		Joins("JOIN alerts ON alerts.id = user_alerts.alert_id").
		Where("user_alerts.user_id = ? AND user_alerts.is_read = ? AND user_alerts.is_dismissed = ?", userID, true, false)
	if rule != "" {
		q = q.Where("alerts.rule_type = ?", rule)
	}
	if priority != "" {
		q = q.Where("alerts.priority = ?", priority)
	}
	var uas []models.UserAlert
	err := q.Find(&uas).Error
	return uas, err
}

// MarkRead sets the read flag on one row. ReadAt is only written on the
// first transition; the update is a no-op for an already read row.
func (r *UserAlertRepository) MarkRead(tx *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.Model(&models.UserAlert{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *UserAlertRepository) MarkDismissed(tx *gorm.DB, id uuid.UUID, at time.Time) (int64, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.Model(&models.UserAlert{}).
		Where("id = ? AND is_dismissed = ?", id, false).
		Updates(map[string]interface{}{"is_dismissed": true, "dismissed_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

// DeleteOldRead hard-deletes rows older than cutoff that were already
// read. The shared alert row is left alone.
func (r *UserAlertRepository) DeleteOldRead(userID uuid.UUID, cutoff time.Time) (int64, error) {
	res := r.db.
		Where("user_id = ? AND created_at < ? AND is_read = ?", userID, cutoff, true).
		Delete(&models.UserAlert{})
	return res.RowsAffected, res.Error
}

// PendingByUser counts unread, undismissed rows grouped by user, for
// the daily summary log.
type PendingCount struct {
	UserID uuid.UUID
	Count  int64
}

func (r *UserAlertRepository) PendingByUser() ([]PendingCount, error) {
	var rows []PendingCount
	err := r.db.Model(&models.UserAlert{}).
		Select("user_id, COUNT(*) AS count").
		Where("is_read = ? AND is_dismissed = ?", false, false).
		Group("user_id").
		Scan(&rows).Error
	return rows, err
}
