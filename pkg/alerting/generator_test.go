package alerting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/repositories"
	"github.com/Arletteportilla/vivero-alerts/pkg/rules"
)

func testEvent(milestone bool) rules.EventRecord {
	event := rules.EventRecord{
		ID:                uuid.New(),
		Kind:              models.KindPollination,
		CreatedAt:         time.Date(2024, 4, 1, 10, 30, 0, 0, time.UTC),
		ResponsibleUserID: uuid.New(),
		DisplayName:       "Orchid #42",
	}
	if milestone {
		m := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		event.MilestoneDate = &m
	}
	return event
}

func TestGenerateForEventCreatesFullSet(t *testing.T) {
	db := openTestDB(t)
	clk := &clock.Fixed{T: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)}
	gen := NewGenerator(db, clk, zap.NewNop())

	event := testEvent(true)
	res, err := gen.GenerateForEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("GenerateForEvent: %v", err)
	}
	if res.Skipped {
		t.Fatal("first run must not be skipped")
	}
	if res.Created != 9 {
		t.Errorf("created = %d, want 9 (1 weekly + 1 preventive + 7 frequent)", res.Created)
	}
	if len(res.Failed) != 0 {
		t.Errorf("unexpected failures: %v", res.Failed)
	}

	var alertCount, userAlertCount int64
	db.Model(&models.Alert{}).Count(&alertCount)
	db.Model(&models.UserAlert{}).Count(&userAlertCount)
	if alertCount != 9 || userAlertCount != 9 {
		t.Errorf("persisted alerts=%d user_alerts=%d, want 9 each", alertCount, userAlertCount)
	}
}

func TestGenerateForEventSecondRunIsSkipped(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db, clock.System(), zap.NewNop())
	event := testEvent(true)

	if _, err := gen.GenerateForEvent(context.Background(), event); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := gen.GenerateForEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !res.Skipped {
		t.Error("second run for the same record must be skipped")
	}
	if res.Created != 0 {
		t.Errorf("second run created %d alerts, want 0", res.Created)
	}

	var count int64
	db.Model(&models.Alert{}).Count(&count)
	if count != 9 {
		t.Errorf("alert count after rerun = %d, want 9", count)
	}
}

func TestGenerateForEventWithoutMilestone(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db, clock.System(), zap.NewNop())

	res, err := gen.GenerateForEvent(context.Background(), testEvent(false))
	if err != nil {
		t.Fatalf("GenerateForEvent: %v", err)
	}
	if res.Created != 1 {
		t.Errorf("created = %d, want 1 (weekly only without a milestone)", res.Created)
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db, clock.System(), zap.NewNop())
	records := repositories.NewSourceRecordRepository(db)

	milestone := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	recs := []models.SourceRecord{
		{
			ID:                uuid.New(),
			Kind:              models.KindPollination,
			RecordedAt:        time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
			ResponsibleUserID: uuid.New(),
			MilestoneDate:     &milestone,
			DisplayName:       "Orchid #42",
		},
		{
			ID:                uuid.New(),
			Kind:              models.KindGermination,
			RecordedAt:        time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC),
			ResponsibleUserID: uuid.New(),
			DisplayName:       "Seed tray B",
		},
	}
	for i := range recs {
		if err := records.Upsert(&recs[i]); err != nil {
			t.Fatalf("upsert record: %v", err)
		}
	}

	res, err := gen.Backfill(context.Background())
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if res.RecordsScanned != 2 {
		t.Errorf("scanned = %d, want 2", res.RecordsScanned)
	}
	if res.AlertsCreated != 10 {
		t.Errorf("created = %d, want 10 (9 with milestone + 1 without)", res.AlertsCreated)
	}
	if res.Failures != 0 {
		t.Errorf("failures = %d, want 0", res.Failures)
	}

	again, err := gen.Backfill(context.Background())
	if err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	if again.RecordsScanned != 0 || again.AlertsCreated != 0 {
		t.Errorf("second sweep scanned=%d created=%d, want 0 and 0", again.RecordsScanned, again.AlertsCreated)
	}
}

func TestBackfillStopsOnCanceledContext(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db, clock.System(), zap.NewNop())
	records := repositories.NewSourceRecordRepository(db)

	rec := models.SourceRecord{
		ID:                uuid.New(),
		Kind:              models.KindPollination,
		RecordedAt:        time.Now(),
		ResponsibleUserID: uuid.New(),
	}
	if err := records.Upsert(&rec); err != nil {
		t.Fatalf("upsert record: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gen.Backfill(ctx); err == nil {
		t.Error("backfill with a canceled context must return an error")
	}
}

func TestCleanupExpiredAffectsEachAlertOnce(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	clk := &clock.Fixed{T: now}
	gen := NewGenerator(db, clk, zap.NewNop())

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	expired := models.Alert{
		RuleType: models.RuleFrequent, Title: "expired", Status: models.StatusPending,
		Priority: models.PriorityHigh, ScheduledAt: past.Add(-24 * time.Hour), ExpiresAt: &past,
	}
	alive := models.Alert{
		RuleType: models.RuleFrequent, Title: "alive", Status: models.StatusPending,
		Priority: models.PriorityHigh, ScheduledAt: now, ExpiresAt: &future,
	}
	if err := db.Create(&expired).Error; err != nil {
		t.Fatalf("seed expired: %v", err)
	}
	if err := db.Create(&alive).Error; err != nil {
		t.Fatalf("seed alive: %v", err)
	}

	count, err := gen.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if count != 1 {
		t.Errorf("first cleanup dismissed %d, want 1", count)
	}

	var got models.Alert
	if err := db.First(&got, "id = ?", expired.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.StatusDismissed {
		t.Errorf("expired alert status = %s, want dismissed", got.Status)
	}

	count, err = gen.CleanupExpired(context.Background())
	if err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
	if count != 0 {
		t.Errorf("second cleanup dismissed %d, want 0", count)
	}
}

func TestAutoDismissStale(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(db, &clock.Fixed{T: now}, zap.NewNop())

	stale := models.Alert{
		RuleType: models.RuleWeekly, Title: "old", Status: models.StatusPending,
		Priority: models.PriorityMedium, ScheduledAt: now.AddDate(0, 0, -40),
		CreatedAt: now.AddDate(0, 0, -40),
	}
	fresh := models.Alert{
		RuleType: models.RuleWeekly, Title: "new", Status: models.StatusPending,
		Priority: models.PriorityMedium, ScheduledAt: now,
		CreatedAt: now.AddDate(0, 0, -1),
	}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("seed stale: %v", err)
	}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("seed fresh: %v", err)
	}

	count, err := gen.AutoDismissStale(context.Background(), 30)
	if err != nil {
		t.Fatalf("auto dismiss: %v", err)
	}
	if count != 1 {
		t.Errorf("dismissed %d, want 1", count)
	}

	var got models.Alert
	db.First(&got, "id = ?", fresh.ID)
	if got.Status != models.StatusPending {
		t.Errorf("fresh alert status = %s, want pending", got.Status)
	}
}

func TestProcessDueCountsOnlyDuePending(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	gen := NewGenerator(db, &clock.Fixed{T: now}, zap.NewNop())

	due := models.Alert{
		RuleType: models.RuleFrequent, Title: "due", Status: models.StatusPending,
		Priority: models.PriorityUrgent, ScheduledAt: now.Add(-time.Minute),
	}
	future := models.Alert{
		RuleType: models.RuleFrequent, Title: "future", Status: models.StatusPending,
		Priority: models.PriorityHigh, ScheduledAt: now.Add(time.Hour),
	}
	read := models.Alert{
		RuleType: models.RuleWeekly, Title: "already read", Status: models.StatusRead,
		Priority: models.PriorityMedium, ScheduledAt: now.Add(-time.Hour),
	}
	for _, a := range []*models.Alert{&due, &future, &read} {
		if err := db.Create(a).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	count, err := gen.ProcessDue(context.Background())
	if err != nil {
		t.Fatalf("process due: %v", err)
	}
	if count != 1 {
		t.Errorf("due count = %d, want 1", count)
	}
}

func TestStatsBuckets(t *testing.T) {
	db := openTestDB(t)
	gen := NewGenerator(db, clock.System(), zap.NewNop())

	seed := []models.Alert{
		{RuleType: models.RuleWeekly, Title: "a", Status: models.StatusPending, Priority: models.PriorityMedium, ScheduledAt: time.Now()},
		{RuleType: models.RuleWeekly, Title: "b", Status: models.StatusRead, Priority: models.PriorityMedium, ScheduledAt: time.Now()},
		{RuleType: models.RuleFrequent, Title: "c", Status: models.StatusPending, Priority: models.PriorityUrgent, ScheduledAt: time.Now()},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	stats, err := gen.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.ByStatus["pending"] != 2 || stats.ByStatus["read"] != 1 {
		t.Errorf("by status = %v", stats.ByStatus)
	}
	if stats.ByRuleType["weekly"] != 2 || stats.ByRuleType["frequent"] != 1 {
		t.Errorf("by rule type = %v", stats.ByRuleType)
	}
	if stats.ByPriority["urgent"] != 1 {
		t.Errorf("by priority = %v", stats.ByPriority)
	}
}
