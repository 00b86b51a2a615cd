package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Arletteportilla/vivero-alerts/pkg/alerting"
	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
)

// AdminHandler exposes one-off runs of the recurring operations. Each
// trigger calls the exact same generator methods the scheduler uses.
type AdminHandler struct {
	gen *alerting.Generator
	log *zap.Logger

	staleDays int
}

func NewAdminHandler(db *gorm.DB, clk clock.Clock, log *zap.Logger, staleDays int) *AdminHandler {
	return &AdminHandler{
		gen:       alerting.NewGenerator(db, clk, log),
		log:       log,
		staleDays: staleDays,
	}
}

func (h *AdminHandler) TriggerJob(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	switch name {
	case "backfill":
		res, err := h.gen.Backfill(ctx)
		h.respond(c, name, res, err)
	case "cleanup-expired":
		count, err := h.gen.CleanupExpired(ctx)
		h.respond(c, name, gin.H{"dismissed": count}, err)
	case "process-due":
		count, err := h.gen.ProcessDue(ctx)
		h.respond(c, name, gin.H{"due": count}, err)
	case "auto-dismiss-stale":
		count, err := h.gen.AutoDismissStale(ctx, h.staleDays)
		h.respond(c, name, gin.H{"dismissed": count}, err)
	case "daily-summary":
		err := h.gen.LogPendingSummaries(ctx)
		h.respond(c, name, gin.H{"message": "summaries logged"}, err)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job: " + name})
	}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.gen.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("alert stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) respond(c *gin.Context, job string, result interface{}, err error) {
	if err != nil {
		h.log.Error("manual job run failed", zap.String("job", job), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"job": job, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "result": result})
}
