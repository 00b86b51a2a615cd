package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Arletteportilla/vivero-alerts/cmd/alert_worker/handler"
	"github.com/Arletteportilla/vivero-alerts/logger"
	"github.com/Arletteportilla/vivero-alerts/metrics"
	"github.com/Arletteportilla/vivero-alerts/middlewares"
	"github.com/Arletteportilla/vivero-alerts/pkg/alerting"
	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/config"
	"github.com/Arletteportilla/vivero-alerts/pkg/database"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/repositories"
	"github.com/Arletteportilla/vivero-alerts/pkg/scheduler"
	"github.com/Arletteportilla/vivero-alerts/pkg/utils"
	"github.com/Arletteportilla/vivero-alerts/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	logr, err := logger.InitLogger()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	defer logr.Sync()

	cfg := config.Default()
	if path := utils.GetEnv("CONFIG_FILE"); path != "" {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			logr.Fatal("failed to load config", zap.String("path", path), zap.Error(err))
		}
	}

	dsn := os.Getenv("ALERTS_DB")
	db, err := database.InitDB(dsn)
	if err != nil {
		logr.Fatal("DB not initialized", zap.Error(err))
	}
	if err := database.MigrateDB(db, &models.Alert{}, &models.UserAlert{}, &models.SourceRecord{}); err != nil {
		logr.Fatal("migration failed", zap.Error(err))
	}

	metrics.InitWorkerMetrics()
	metrics.InitKafkaMetrics()

	shutdownTracer := tracing.InitTracer("alert_worker", logr)
	defer shutdownTracer()
	tracer := otel.Tracer("alert_worker")

	clk := clock.System()
	gen := alerting.NewGenerator(db, clk, logr)
	records := repositories.NewSourceRecordRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handler.HandleRecordCreated(
		ctx,
		cfg.Kafka.RecordCreatedTopic,
		cfg.Kafka.ConsumerGroup,
		gen, records, logr, tracer,
	)

	sched := scheduler.New(logr)
	registerJobs(sched, gen, db, cfg, logr)
	go sched.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logr.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		os.Exit(0)
	}()

	wrappedMux := middlewares.MetricsMiddleware(mux)
	logr.Info("Starting alert worker", zap.String("addr", cfg.Worker.Addr))
	if err := http.ListenAndServe(cfg.Worker.Addr, wrappedMux); err != nil {
		logr.Fatal("metrics server failed", zap.Error(err))
	}
}

func registerJobs(sched *scheduler.Scheduler, gen *alerting.Generator, db *gorm.DB, cfg *config.Config, logr *zap.Logger) {
	sc := cfg.Scheduler
	hard := sc.HardTimeout.Std()
	soft := sc.SoftTimeout.Std()

	// The three generation sweeps share one reconciliation pass; the
	// guard makes the overlap harmless.
	backfill := func(ctx context.Context) error {
		_, err := gen.Backfill(ctx)
		return err
	}

	jobs := []scheduler.Job{
		{
			Name: "process-due", Queue: "alerts", Every: sc.ProcessDueEvery.Std(),
			Timeout: hard, SoftTimeout: soft,
			Run: func(ctx context.Context) error {
				count, err := gen.ProcessDue(ctx)
				if err == nil {
					logr.Info("processed due alerts", zap.Int("count", count))
				}
				return err
			},
		},
		{Name: "generate-weekly", Queue: "alerts", Every: sc.GenerateWeeklyEvery.Std(), Timeout: hard, SoftTimeout: soft, Run: backfill},
		{Name: "generate-preventive", Queue: "alerts", Every: sc.GeneratePreventiveEvery.Std(), Timeout: hard, SoftTimeout: soft, Run: backfill},
		{Name: "generate-frequent", Queue: "alerts", Every: sc.GenerateFrequentEvery.Std(), Timeout: hard, SoftTimeout: soft, Run: backfill},
		{
			Name: "cleanup-expired", Queue: "alerts", Every: sc.CleanupExpiredEvery.Std(),
			Timeout: hard, SoftTimeout: soft,
			Run: func(ctx context.Context) error {
				_, err := gen.CleanupExpired(ctx)
				return err
			},
		},
		{
			Name: "auto-dismiss-stale", Queue: "alerts", Every: sc.AutoDismissEvery.Std(),
			Timeout: hard, SoftTimeout: soft,
			Run: func(ctx context.Context) error {
				_, err := gen.AutoDismissStale(ctx, cfg.Retention.StaleAlertDays)
				return err
			},
		},
		{
			Name: "daily-summary", Queue: "alerts", Every: 24 * time.Hour,
			Timeout: hard, SoftTimeout: soft,
			Run: gen.LogPendingSummaries,
		},
		{
			Name: "health-check", Queue: "system", Every: sc.HealthCheckEvery.Std(),
			Timeout: time.Minute, Retry: scheduler.RetryPolicy{MaxAttempts: 3, Backoff: 5 * time.Second},
			Run: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
	}

	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			logr.Fatal("failed to register job", zap.String("job", job.Name), zap.Error(err))
		}
	}
}
