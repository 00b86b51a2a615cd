package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Arletteportilla/vivero-alerts/cmd/alert_api/app/internal/handler"
	"github.com/Arletteportilla/vivero-alerts/middlewares"
	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/config"
)

func Notifications(router *gin.RouterGroup, db *gorm.DB, rdb *redis.Client, clk clock.Clock, cfg *config.Config, log *zap.Logger) {
	h := handler.NewNotificationHandler(db, clk, log)

	limiter := middlewares.NewRateLimiter(
		rate.Limit(float64(cfg.API.RateLimitPerMin)/60.0),
		cfg.API.RateLimitBurst,
	)
	router.Use(middlewares.RequireUser(), limiter.Middleware())

	router.GET("", h.List)
	router.GET("/summary", h.Summary)
	router.GET("/unread", h.Unread)
	router.GET("/by-type", h.ByType)
	router.GET("/by-priority", h.ByPriority)

	quota := middlewares.MutationQuota(rdb, cfg.API.MutationQuotaMin)
	router.POST("/:id/mark-as-read", quota, h.MarkAsRead)
	router.POST("/:id/mark-as-dismissed", quota, h.MarkAsDismissed)
	router.POST("/mark-all-as-read", quota, h.MarkAllAsRead)
	router.POST("/bulk-action", quota, h.BulkAction)
	router.POST("/cleanup-old", quota, h.CleanupOld)
}

func Admin(router *gin.RouterGroup, db *gorm.DB, clk clock.Clock, cfg *config.Config, log *zap.Logger) {
	h := handler.NewAdminHandler(db, clk, log, cfg.Retention.StaleAlertDays)

	router.POST("/jobs/:name", h.TriggerJob)
	router.GET("/alerts/stats", h.Stats)
}
