package rules

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Arletteportilla/vivero-alerts/pkg/models"
)

// EventRecord is the slice of an external tracking record the rule
// engine works from. Pollination records carry an estimated maturation
// date as milestone, germination records an estimated transplant date.
type EventRecord struct {
	ID                uuid.UUID
	Kind              models.RecordKind
	CreatedAt         time.Time
	ResponsibleUserID uuid.UUID
	MilestoneDate     *time.Time
	DisplayName       string
}

// AlertSpec is a fully computed alert, ready to persist.
type AlertSpec struct {
	RuleType    models.RuleType
	OffsetIndex int
	Title       string
	Message     string
	Priority    models.Priority
	ScheduledAt time.Time
	ExpiresAt   *time.Time
	Metadata    map[string]string
}

// DedupKey returns the deterministic identity of this spec for event.
func (s AlertSpec) DedupKey(event EventRecord) string {
	return models.DedupKeyFor(event.Kind, event.ID, s.RuleType, s.OffsetIndex)
}

const dateLayout = "2006-01-02"

// Weekly produces the single follow-up alert one week after the record
// was created. Always produced.
func Weekly(event EventRecord) []AlertSpec {
	scheduledAt := event.CreatedAt.Add(7 * 24 * time.Hour)
	expiresAt := scheduledAt.Add(7 * 24 * time.Hour)

	var title, message string
	switch event.Kind {
	case models.KindPollination:
		title = fmt.Sprintf("Weekly follow-up - Pollination %s", event.DisplayName)
		message = fmt.Sprintf(
			"One week has passed since the pollination of %s recorded on %s.%s",
			event.DisplayName, event.CreatedAt.Format(dateLayout), milestoneSuffix(event, "Estimated maturation date"),
		)
	default:
		title = fmt.Sprintf("Weekly follow-up - Germination %s", event.DisplayName)
		message = fmt.Sprintf(
			"One week has passed since the germination of %s recorded on %s.%s",
			event.DisplayName, event.CreatedAt.Format(dateLayout), milestoneSuffix(event, "Estimated transplant date"),
		)
	}

	return []AlertSpec{{
		RuleType:    models.RuleWeekly,
		OffsetIndex: 0,
		Title:       title,
		Message:     message,
		Priority:    models.PriorityMedium,
		ScheduledAt: scheduledAt,
		ExpiresAt:   &expiresAt,
		Metadata:    baseMetadata(event),
	}}
}

// Preventive produces the single heads-up alert one week before the
// milestone date, at the start of that day. No milestone, no alert.
func Preventive(event EventRecord) []AlertSpec {
	if event.MilestoneDate == nil {
		return nil
	}
	milestone := *event.MilestoneDate
	scheduledAt := startOfDay(milestone.AddDate(0, 0, -7))

	var title, message string
	switch event.Kind {
	case models.KindPollination:
		title = "Preventive alert - Maturation approaching"
		message = fmt.Sprintf(
			"The pollination of %s is close to maturation. Estimated date: %s. Prepare the materials needed for harvest.",
			event.DisplayName, milestone.Format(dateLayout),
		)
	default:
		title = "Preventive alert - Transplant approaching"
		message = fmt.Sprintf(
			"The seedlings of %s are almost ready for transplant. Estimated date: %s. Prepare the containers and substrate.",
			event.DisplayName, milestone.Format(dateLayout),
		)
	}

	return []AlertSpec{{
		RuleType:    models.RulePreventive,
		OffsetIndex: 0,
		Title:       title,
		Message:     message,
		Priority:    models.PriorityHigh,
		ScheduledAt: scheduledAt,
		Metadata:    baseMetadata(event),
	}}
}

// Frequent produces one daily reminder for each day in the week
// surrounding the milestone date, at 09:00 local time. Days before the
// milestone are high priority; the day itself and every day after are
// urgent. No milestone, no alerts.
func Frequent(event EventRecord) []AlertSpec {
	if event.MilestoneDate == nil {
		return nil
	}
	milestone := *event.MilestoneDate

	var baseTitle, baseMessage string
	switch event.Kind {
	case models.KindPollination:
		baseTitle = "Daily reminder - Maturation"
		baseMessage = fmt.Sprintf("Check the maturation status of %s", event.DisplayName)
	default:
		baseTitle = "Daily reminder - Transplant"
		baseMessage = fmt.Sprintf("Check the seedlings of %s", event.DisplayName)
	}

	specs := make([]AlertSpec, 0, 7)
	for offset := -3; offset <= 3; offset++ {
		day := milestone.AddDate(0, 0, offset)
		scheduledAt := atHour(day, 9)
		expiresAt := scheduledAt.Add(24 * time.Hour)

		var title string
		var priority models.Priority
		switch {
		case offset == 0:
			title = fmt.Sprintf("%s - TODAY IS THE DAY", baseTitle)
			priority = models.PriorityUrgent
		case offset < 0:
			title = fmt.Sprintf("%s - %d days left", baseTitle, -offset)
			priority = models.PriorityHigh
		default:
			title = fmt.Sprintf("%s - %d days overdue", baseTitle, offset)
			priority = models.PriorityUrgent
		}

		specs = append(specs, AlertSpec{
			RuleType:    models.RuleFrequent,
			OffsetIndex: offset,
			Title:       title,
			Message:     fmt.Sprintf("%s. Estimated date: %s", baseMessage, milestone.Format(dateLayout)),
			Priority:    priority,
			ScheduledAt: scheduledAt,
			ExpiresAt:   &expiresAt,
			Metadata:    baseMetadata(event),
		})
	}
	return specs
}

// GenerateAlerts computes the specs for a single rule type.
func GenerateAlerts(event EventRecord, rule models.RuleType) []AlertSpec {
	switch rule {
	case models.RuleWeekly:
		return Weekly(event)
	case models.RulePreventive:
		return Preventive(event)
	case models.RuleFrequent:
		return Frequent(event)
	}
	return nil
}

// GenerateAll computes every spec for the record, weekly first, then
// preventive, then frequent in ascending offset order.
func GenerateAll(event EventRecord) []AlertSpec {
	specs := Weekly(event)
	specs = append(specs, Preventive(event)...)
	specs = append(specs, Frequent(event)...)
	return specs
}

func baseMetadata(event EventRecord) map[string]string {
	md := map[string]string{
		"record_kind":  string(event.Kind),
		"record_id":    event.ID.String(),
		"display_name": event.DisplayName,
	}
	if event.MilestoneDate != nil {
		md["milestone_date"] = event.MilestoneDate.Format(dateLayout)
	}
	return md
}

func milestoneSuffix(event EventRecord, label string) string {
	if event.MilestoneDate == nil {
		return ""
	}
	return fmt.Sprintf(" %s: %s.", label, event.MilestoneDate.Format(dateLayout))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}
