package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Arletteportilla/vivero-alerts/logger"
	"github.com/Arletteportilla/vivero-alerts/pkg/alerting"
	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/config"
	"github.com/Arletteportilla/vivero-alerts/pkg/database"
	"github.com/Arletteportilla/vivero-alerts/pkg/kafka"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/types"
)

const usage = `usage: alertctl <command> [flags]

commands:
  backfill            generate alerts for records that have none
  cleanup-expired     dismiss pending alerts past their expiry
  process-due         scan and log alerts that are due now
  auto-dismiss-stale  dismiss pending alerts older than the retention window
  stats               print alert totals by status, rule type and priority
  emit-record         publish a record-created event to Kafka (enqueued generation)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	ctx := context.Background()

	if command == "emit-record" {
		emitRecord(ctx, os.Args[2:], logr)
		return
	}

	db, err := database.InitDB(os.Getenv("ALERTS_DB"))
	if err != nil {
		logr.Fatal("DB not initialized", zap.Error(err))
	}
	gen := alerting.NewGenerator(db, clock.System(), logr)
	cfg := config.Default()

	switch command {
	case "backfill":
		res, err := gen.Backfill(ctx)
		exitOn(logr, command, err)
		fmt.Printf("scanned=%d created=%d failures=%d\n", res.RecordsScanned, res.AlertsCreated, res.Failures)
	case "cleanup-expired":
		count, err := gen.CleanupExpired(ctx)
		exitOn(logr, command, err)
		fmt.Printf("dismissed=%d\n", count)
	case "process-due":
		count, err := gen.ProcessDue(ctx)
		exitOn(logr, command, err)
		fmt.Printf("due=%d\n", count)
	case "auto-dismiss-stale":
		count, err := gen.AutoDismissStale(ctx, cfg.Retention.StaleAlertDays)
		exitOn(logr, command, err)
		fmt.Printf("dismissed=%d\n", count)
	case "stats":
		stats, err := gen.Stats(ctx)
		exitOn(logr, command, err)
		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func emitRecord(ctx context.Context, args []string, logr *zap.Logger) {
	fs := flag.NewFlagSet("emit-record", flag.ExitOnError)
	kind := fs.String("kind", "pollination", "record kind: pollination or germination")
	recordID := fs.String("record-id", "", "record id (uuid, random when empty)")
	userID := fs.String("user-id", "", "responsible user id (uuid, required)")
	name := fs.String("name", "", "record display name")
	milestone := fs.String("milestone", "", "milestone date, YYYY-MM-DD (optional)")
	fs.Parse(args)

	event := types.RecordCreatedEvent{
		Kind:        models.RecordKind(*kind),
		CreatedAt:   time.Now(),
		DisplayName: *name,
	}
	if event.Kind != models.KindPollination && event.Kind != models.KindGermination {
		logr.Fatal("kind must be pollination or germination")
	}

	var err error
	event.ID = uuid.New()
	if *recordID != "" {
		if event.ID, err = uuid.Parse(*recordID); err != nil {
			logr.Fatal("invalid record id", zap.Error(err))
		}
	}
	if event.ResponsibleUserID, err = uuid.Parse(*userID); err != nil {
		logr.Fatal("a valid -user-id is required", zap.Error(err))
	}
	if *milestone != "" {
		t, err := time.ParseInLocation("2006-01-02", *milestone, time.Local)
		if err != nil {
			logr.Fatal("invalid milestone date", zap.Error(err))
		}
		event.MilestoneDate = &t
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logr.Fatal("marshal event", zap.Error(err))
	}

	producer := kafka.NewProducerFromEnv()
	defer producer.Close()
	topic := config.Default().Kafka.RecordCreatedTopic
	if err := producer.Publish(ctx, topic, event.ID[:], payload); err != nil {
		logr.Fatal("publish failed", zap.Error(err))
	}
	fmt.Printf("published record %s to %s\n", event.ID, topic)
}

func exitOn(logr *zap.Logger, command string, err error) {
	if err != nil {
		logr.Fatal("command failed", zap.String("command", command), zap.Error(err))
	}
}
