package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/Arletteportilla/vivero-alerts/pkg/models"
)

// RecordCreatedEvent is published by the tracking modules whenever a
// pollination or germination record is saved, and consumed by the
// alert worker.
type RecordCreatedEvent struct {
	ID                uuid.UUID         `json:"id"`
	Kind              models.RecordKind `json:"kind"`
	CreatedAt         time.Time         `json:"created_at"`
	ResponsibleUserID uuid.UUID         `json:"responsible_user_id"`
	MilestoneDate     *time.Time        `json:"milestone_date,omitempty"`
	DisplayName       string            `json:"display_name"`
}
