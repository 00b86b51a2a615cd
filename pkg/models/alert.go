package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RuleType string

const (
	RuleWeekly     RuleType = "weekly"
	RulePreventive RuleType = "preventive"
	RuleFrequent   RuleType = "frequent"
)

func ValidRuleType(r RuleType) bool {
	switch r {
	case RuleWeekly, RulePreventive, RuleFrequent:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type AlertStatus string

const (
	StatusPending   AlertStatus = "pending"
	StatusRead      AlertStatus = "read"
	StatusDismissed AlertStatus = "dismissed"
)

type RecordKind string

const (
	KindPollination RecordKind = "pollination"
	KindGermination RecordKind = "germination"
)

// Alert is a scheduled reminder derived from a tracking record.
// Status is shared across every recipient: a single user reading or
// dismissing their copy flips it for everyone. Inherited behavior,
// kept as-is.
type Alert struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	RuleType    RuleType    `gorm:"size:20;not null;index:idx_alerts_rule_status" json:"rule_type"`
	Title       string      `gorm:"size:200;not null" json:"title"`
	Message     string      `gorm:"type:text" json:"message"`
	Status      AlertStatus `gorm:"size:20;not null;default:pending;index:idx_alerts_rule_status;index:idx_alerts_status_sched" json:"status"`
	Priority    Priority    `gorm:"size:20;not null;default:medium" json:"priority"`
	ScheduledAt time.Time   `gorm:"not null;index:idx_alerts_status_sched" json:"scheduled_at"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`

	// At most one source record. Both nil for manually created alerts.
	SourceRecordID   *uuid.UUID `gorm:"type:uuid;index:idx_alerts_source" json:"source_record_id,omitempty"`
	SourceRecordKind RecordKind `gorm:"size:20;index:idx_alerts_source" json:"source_record_kind,omitempty"`

	// DedupKey is a deterministic identity for generated alerts,
	// <kind>:<recordID>:<ruleType>:<offset>. The unique index catches
	// a double generation that slips past the coarse guard.
	DedupKey string `gorm:"size:160;uniqueIndex" json:"-"`

	Metadata map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.DedupKey == "" {
		a.DedupKey = fmt.Sprintf("manual:%s", a.ID)
	}
	return nil
}

// DedupKeyFor builds the idempotency key for a generated alert.
func DedupKeyFor(kind RecordKind, recordID uuid.UUID, rule RuleType, offset int) string {
	return fmt.Sprintf("%s:%s:%s:%d", kind, recordID, rule, offset)
}

// UserAlert is one user's view of an Alert. Read and dismissed are
// independent flags; their timestamps are written once, on the first
// transition only.
type UserAlert struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_alert;index:idx_user_read" json:"user_id"`
	AlertID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_alert" json:"alert_id"`
	IsRead      bool       `gorm:"not null;default:false;index:idx_user_read" json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	IsDismissed bool       `gorm:"not null;default:false" json:"is_dismissed"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Alert Alert `gorm:"foreignKey:AlertID;constraint:OnDelete:CASCADE" json:"alert"`
}

func (ua *UserAlert) BeforeCreate(tx *gorm.DB) error {
	if ua.ID == uuid.Nil {
		ua.ID = uuid.New()
	}
	return nil
}

// SourceRecord mirrors the fields of an external tracking record that
// the rule engine needs. Rows are written by the ingress consumer and
// scanned by the backfill sweep; the record itself stays opaque.
type SourceRecord struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Kind              RecordKind `gorm:"size:20;primaryKey" json:"kind"`
	RecordedAt        time.Time  `gorm:"not null" json:"recorded_at"`
	ResponsibleUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"responsible_user_id"`
	MilestoneDate     *time.Time `json:"milestone_date,omitempty"`
	DisplayName       string     `gorm:"size:200" json:"display_name"`
	ReceivedAt        time.Time  `gorm:"autoCreateTime" json:"received_at"`
}
