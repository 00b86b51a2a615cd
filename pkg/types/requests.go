package types

import (
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
)

type BulkActionRequest struct {
	Action   string          `json:"action" binding:"required"`
	RuleType models.RuleType `json:"ruleType,omitempty"`
	Priority models.Priority `json:"priority,omitempty"`
}

type CleanupOldRequest struct {
	DaysOld int `json:"daysOld" binding:"required,min=1"`
}

type NotificationSummary struct {
	TotalNotifications        int64 `json:"total"`
	UnreadNotifications       int64 `json:"unread"`
	UrgentNotifications       int64 `json:"urgent"`
	HighPriorityNotifications int64 `json:"highPriority"`
	RecentNotifications       int64 `json:"recentLast7Days"`
	HasUrgent                 bool  `json:"hasUrgent"`
	HasUnread                 bool  `json:"hasUnread"`
}
