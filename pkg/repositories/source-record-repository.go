package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Arletteportilla/vivero-alerts/pkg/models"
)

type SourceRecordRepository struct {
	db *gorm.DB
}

func NewSourceRecordRepository(db *gorm.DB) *SourceRecordRepository {
	return &SourceRecordRepository{db: db}
}

// Upsert stores or refreshes the local mirror of an external record.
// The ingress feed is at-least-once, so replays must not fail.
func (r *SourceRecordRepository) Upsert(rec *models.SourceRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}, {Name: "kind"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"recorded_at", "responsible_user_id", "milestone_date", "display_name",
		}),
	}).Create(rec).Error
}

// ListWithoutAlerts returns mirror rows that no alert references yet,
// the working set of the backfill sweep.
func (r *SourceRecordRepository) ListWithoutAlerts() ([]models.SourceRecord, error) {
	var recs []models.SourceRecord
	err := r.db.
		Where("NOT EXISTS (SELECT 1 FROM alerts WHERE alerts.source_record_id = source_records.id AND alerts.source_record_kind = source_records.kind)").
		Order("received_at ASC").
		Find(&recs).Error
	return recs, err
}
