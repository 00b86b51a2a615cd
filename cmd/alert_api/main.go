package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Arletteportilla/vivero-alerts/cmd/alert_api/app/routes"
	"github.com/Arletteportilla/vivero-alerts/logger"
	"github.com/Arletteportilla/vivero-alerts/metrics"
	"github.com/Arletteportilla/vivero-alerts/middlewares"
	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/config"
	"github.com/Arletteportilla/vivero-alerts/pkg/database"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/utils"
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

	rdb, err := database.InitRedis(utils.GetEnvDefault("REDIS_ADDR", "localhost:6379"))
	if err != nil {
		logr.Fatal("redis not initialized", zap.Error(err))
	}

	metrics.InitAPIMetrics()
	logr.Info("Starting alert API", zap.String("addr", cfg.API.Addr))

	router := gin.Default()
	router.Use(middlewares.GinMetricsMiddleware())

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	clk := clock.System()
	v1 := router.Group("/api")
	routes.Notifications(v1.Group("/notifications"), db, rdb, clk, cfg, logr)
	routes.Admin(v1.Group("/admin"), db, clk, cfg, logr)

	go handleShutdown(logr)
	if err := router.Run(cfg.API.Addr); err != nil {
		logr.Fatal("Failed to start server", zap.Error(err))
	}
}

func handleShutdown(log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	os.Exit(0)
}
