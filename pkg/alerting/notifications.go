package alerting

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/repositories"
	"github.com/Arletteportilla/vivero-alerts/pkg/types"
)

var (
	ErrNotFound        = errors.New("notification not found")
	ErrInvalidAction   = errors.New("unknown bulk action")
	ErrInvalidRuleType = errors.New("unknown rule type")
	ErrInvalidPriority = errors.New("unknown priority")
)

const (
	BulkMarkAllRead    = "markAllRead"
	BulkDismissAllRead = "dismissAllRead"
)

// NotificationService is the per-user read/dismiss surface over user
// alerts. A user's read or dismiss also flips the shared Alert.status,
// exactly as the system has always behaved.
type NotificationService struct {
	db     *gorm.DB
	users  *repositories.UserAlertRepository
	alerts *repositories.AlertRepository
	clk    clock.Clock
	log    *zap.Logger
}

func NewNotificationService(db *gorm.DB, clk clock.Clock, log *zap.Logger) *NotificationService {
	return &NotificationService{
		db:     db,
		users:  repositories.NewUserAlertRepository(db),
		alerts: repositories.NewAlertRepository(db),
		clk:    clk,
		log:    log,
	}
}

type ListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

func (s *NotificationService) ListForUser(userID uuid.UUID, opts ListOptions) ([]models.UserAlert, error) {
	return s.users.ListByUser(userID, opts.Limit, opts.Offset, opts.UnreadOnly)
}

func (s *NotificationService) Summary(userID uuid.UUID) (*types.NotificationSummary, error) {
	total, err := s.users.CountByUser(userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.users.CountUnread(userID)
	if err != nil {
		return nil, err
	}
	urgent, err := s.users.CountUnreadByPriority(userID, models.PriorityUrgent)
	if err != nil {
		return nil, err
	}
	high, err := s.users.CountUnreadByPriority(userID, models.PriorityHigh)
	if err != nil {
		return nil, err
	}
	recent, err := s.users.CountRecent(userID, s.clk.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}

	return &types.NotificationSummary{
		TotalNotifications:        total,
		UnreadNotifications:       unread,
		UrgentNotifications:       urgent,
		HighPriorityNotifications: high,
		RecentNotifications:       recent,
		HasUrgent:                 urgent > 0,
		HasUnread:                 unread > 0,
	}, nil
}

func (s *NotificationService) ListByType(userID uuid.UUID, rule models.RuleType) ([]models.UserAlert, error) {
	if !models.ValidRuleType(rule) {
		return nil, ErrInvalidRuleType
	}
	return s.users.ListByType(userID, rule)
}

func (s *NotificationService) ListByPriority(userID uuid.UUID, priority models.Priority) ([]models.UserAlert, error) {
	if !models.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}
	return s.users.ListByPriority(userID, priority)
}

// MarkRead marks one notification read. Idempotent: the second call
// leaves read_at untouched and is a no-op.
func (s *NotificationService) MarkRead(userID, alertID uuid.UUID) error {
	return s.transition(userID, alertID, models.StatusRead, s.users.MarkRead)
}

// MarkDismissed marks one notification dismissed, independently of the
// read flag.
func (s *NotificationService) MarkDismissed(userID, alertID uuid.UUID) error {
	return s.transition(userID, alertID, models.StatusDismissed, s.users.MarkDismissed)
}

func (s *NotificationService) transition(
	userID, alertID uuid.UUID,
	status models.AlertStatus,
	update func(tx *gorm.DB, id uuid.UUID, at time.Time) (int64, error),
) error {
	ua, err := s.users.Get(userID, alertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := update(tx, ua.ID, s.clk.Now())
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil // already in the target state
		}
		return s.alerts.SetStatus(tx, alertID, status)
	})
}

// MarkAllRead marks every unread notification of the user as read and
// returns how many rows changed.
func (s *NotificationService) MarkAllRead(userID uuid.UUID) (int, error) {
	return s.bulkTransition(userID, "", "", true)
}

// BulkAction applies markAllRead or dismissAllRead to the rows
// matching the filter. Filters are validated before any row is
// touched.
func (s *NotificationService) BulkAction(userID uuid.UUID, req types.BulkActionRequest) (int, error) {
	if req.RuleType != "" && !models.ValidRuleType(req.RuleType) {
		return 0, ErrInvalidRuleType
	}
	if req.Priority != "" && !models.ValidPriority(req.Priority) {
		return 0, ErrInvalidPriority
	}

	switch req.Action {
	case BulkMarkAllRead:
		return s.bulkTransition(userID, req.RuleType, req.Priority, true)
	case BulkDismissAllRead:
		return s.bulkTransition(userID, req.RuleType, req.Priority, false)
	default:
		return 0, ErrInvalidAction
	}
}

func (s *NotificationService) bulkTransition(userID uuid.UUID, rule models.RuleType, priority models.Priority, read bool) (int, error) {
	var (
		rows []models.UserAlert
		err  error
	)
	if read {
		rows, err = s.users.ListUnread(userID, rule, priority)
	} else {
		rows, err = s.users.ListReadNotDismissed(userID, rule, priority)
	}
	if err != nil {
		return 0, err
	}

	count := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := s.clk.Now()
		for _, ua := range rows {
			var (
				affected int64
				status   models.AlertStatus
			)
			if read {
				affected, err = s.users.MarkRead(tx, ua.ID, now)
				status = models.StatusRead
			} else {
				affected, err = s.users.MarkDismissed(tx, ua.ID, now)
				status = models.StatusDismissed
			}
			if err != nil {
				return err
			}
			if affected == 0 {
				continue
			}
			if err := s.alerts.SetStatus(tx, ua.AlertID, status); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// CleanupOld hard-deletes the user's notifications that are already
// read and older than daysOld. Returns the number deleted.
func (s *NotificationService) CleanupOld(userID uuid.UUID, daysOld int) (int64, error) {
	cutoff := s.clk.Now().AddDate(0, 0, -daysOld)
	count, err := s.users.DeleteOldRead(userID, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("old notifications deleted",
			zap.String("user_id", userID.String()),
			zap.Int64("count", count),
		)
	}
	return count, nil
}
