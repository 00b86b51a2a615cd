package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Arletteportilla/vivero-alerts/metrics"
	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/repositories"
	"github.com/Arletteportilla/vivero-alerts/pkg/rules"
)

// Generator derives alerts from tracking records and persists them
// idempotently. It backs both the event-triggered path and the
// scheduled backfill sweep.
type Generator struct {
	db      *gorm.DB
	alerts  *repositories.AlertRepository
	users   *repositories.UserAlertRepository
	records *repositories.SourceRecordRepository
	clk     clock.Clock
	log     *zap.Logger
}

func NewGenerator(db *gorm.DB, clk clock.Clock, log *zap.Logger) *Generator {
	return &Generator{
		db:      db,
		alerts:  repositories.NewAlertRepository(db),
		users:   repositories.NewUserAlertRepository(db),
		records: repositories.NewSourceRecordRepository(db),
		clk:     clk,
		log:     log,
	}
}

// GenerationResult reports what one generation pass did for a record.
// Failed maps each rule type whose batch could not be committed to the
// error text; the other batches still went through.
type GenerationResult struct {
	RecordID string                     `json:"record_id"`
	Kind     models.RecordKind          `json:"kind"`
	Created  int                        `json:"created"`
	Skipped  bool                       `json:"skipped"`
	Failed   map[models.RuleType]string `json:"failed,omitempty"`
}

var ruleOrder = []models.RuleType{models.RuleWeekly, models.RulePreventive, models.RuleFrequent}

// GenerateForEvent runs the rule engine for one record and persists
// the result. The coarse guard and the first batch share a
// transaction; each further rule type gets its own transaction so one
// failing batch does not take the others down with it.
func (g *Generator) GenerateForEvent(ctx context.Context, event rules.EventRecord) (*GenerationResult, error) {
	res := &GenerationResult{
		RecordID: event.ID.String(),
		Kind:     event.Kind,
		Failed:   map[models.RuleType]string{},
	}

	for i, rule := range ruleOrder {
		specs := rules.GenerateAlerts(event, rule)
		guard := i == 0

		err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if guard {
				has, err := g.alerts.HasAnyForRecord(tx, event.ID, event.Kind)
				if err != nil {
					return err
				}
				if has {
					res.Skipped = true
					return nil
				}
			}
			created, err := g.persistBatch(tx, event, specs)
			if err != nil {
				return err
			}
			res.Created += created
			return nil
		})
		if res.Skipped {
			return res, nil
		}
		if err != nil {
			metrics.AlertGenerationFailuresTotal.WithLabelValues(string(rule)).Inc()
			g.log.Error("alert batch failed",
				zap.String("record_id", res.RecordID),
				zap.String("kind", string(event.Kind)),
				zap.String("rule_type", string(rule)),
				zap.Error(err),
			)
			res.Failed[rule] = err.Error()
		}
	}

	if len(res.Failed) == len(ruleOrder) {
		return res, fmt.Errorf("all rule types failed for record %s", res.RecordID)
	}
	return res, nil
}

func (g *Generator) persistBatch(tx *gorm.DB, event rules.EventRecord, specs []rules.AlertSpec) (int, error) {
	created := 0
	for _, spec := range specs {
		recordID := event.ID
		alert := &models.Alert{
			RuleType:         spec.RuleType,
			Title:            spec.Title,
			Message:          spec.Message,
			Status:           models.StatusPending,
			Priority:         spec.Priority,
			ScheduledAt:      spec.ScheduledAt,
			ExpiresAt:        spec.ExpiresAt,
			SourceRecordID:   &recordID,
			SourceRecordKind: event.Kind,
			DedupKey:         spec.DedupKey(event),
			Metadata:         spec.Metadata,
		}
		inserted, err := g.alerts.CreateIgnoreDuplicate(tx, alert)
		if err != nil {
			return created, err
		}
		if !inserted {
			// Lost a race with a concurrent generation run. The
			// existing row is the same alert, nothing to do.
			continue
		}
		ua := &models.UserAlert{
			UserID:  event.ResponsibleUserID,
			AlertID: alert.ID,
		}
		if err := g.users.Create(tx, ua); err != nil {
			return created, err
		}
		metrics.AlertsGeneratedTotal.WithLabelValues(string(spec.RuleType), string(event.Kind)).Inc()
		created++
	}
	return created, nil
}

// BackfillResult aggregates one reconciliation sweep.
type BackfillResult struct {
	RecordsScanned int `json:"records_scanned"`
	AlertsCreated  int `json:"alerts_created"`
	Failures       int `json:"failures"`
}

// Backfill generates alerts for every mirrored record that has none
// yet. Safe to re-run on a schedule: a record picked up by an earlier
// sweep no longer appears in the scan, and the guard catches the rest.
func (g *Generator) Backfill(ctx context.Context) (*BackfillResult, error) {
	recs, err := g.records.ListWithoutAlerts()
	if err != nil {
		return nil, err
	}

	res := &BackfillResult{}
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.RecordsScanned++

		event := rules.EventRecord{
			ID:                rec.ID,
			Kind:              rec.Kind,
			CreatedAt:         rec.RecordedAt,
			ResponsibleUserID: rec.ResponsibleUserID,
			MilestoneDate:     rec.MilestoneDate,
			DisplayName:       rec.DisplayName,
		}
		gen, err := g.GenerateForEvent(ctx, event)
		if err != nil {
			res.Failures++
			continue
		}
		res.AlertsCreated += gen.Created
		if len(gen.Failed) > 0 {
			res.Failures++
		}
	}

	g.log.Info("backfill sweep finished",
		zap.Int("records_scanned", res.RecordsScanned),
		zap.Int("alerts_created", res.AlertsCreated),
		zap.Int("failures", res.Failures),
	)
	return res, nil
}

// CleanupExpired dismisses pending alerts whose expiry has passed.
func (g *Generator) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := g.alerts.CleanupExpired(g.clk.Now())
	if err != nil {
		return 0, err
	}
	metrics.AlertsExpiredTotal.Add(float64(count))
	if count > 0 {
		g.log.Info("expired alerts dismissed", zap.Int64("count", count))
	}
	return count, nil
}

// AutoDismissStale dismisses pending alerts older than the retention
// window, keeping the feed focused on current work.
func (g *Generator) AutoDismissStale(ctx context.Context, staleDays int) (int64, error) {
	now := g.clk.Now()
	cutoff := now.AddDate(0, 0, -staleDays)
	count, err := g.alerts.DismissOlderThan(cutoff, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		g.log.Info("stale alerts dismissed", zap.Int64("count", count), zap.Int("stale_days", staleDays))
	}
	return count, nil
}

// ProcessDue scans pending alerts whose scheduled time has arrived.
// Delivery is out of scope; due alerts are logged and counted.
func (g *Generator) ProcessDue(ctx context.Context) (int, error) {
	due, err := g.alerts.DuePending(g.clk.Now())
	if err != nil {
		return 0, err
	}
	for _, alert := range due {
		g.log.Info("alert due",
			zap.String("alert_id", alert.ID.String()),
			zap.String("rule_type", string(alert.RuleType)),
			zap.String("priority", string(alert.Priority)),
			zap.String("title", alert.Title),
		)
	}
	return len(due), nil
}

// Stats reports alert totals by status, rule type and priority.
func (g *Generator) Stats(ctx context.Context) (*repositories.AlertStats, error) {
	return g.alerts.Stats()
}

// LogPendingSummaries writes one log line per user with unread alerts.
func (g *Generator) LogPendingSummaries(ctx context.Context) error {
	rows, err := g.users.PendingByUser()
	if err != nil {
		return err
	}
	for _, row := range rows {
		g.log.Info("daily alert summary",
			zap.String("user_id", row.UserID.String()),
			zap.Int64("pending", row.Count),
		)
	}
	return nil
}
