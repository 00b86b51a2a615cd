package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Arletteportilla/vivero-alerts/middlewares"
	"github.com/Arletteportilla/vivero-alerts/pkg/alerting"
	"github.com/Arletteportilla/vivero-alerts/pkg/clock"
	"github.com/Arletteportilla/vivero-alerts/pkg/models"
	"github.com/Arletteportilla/vivero-alerts/pkg/types"
)

type NotificationHandler struct {
	svc *alerting.NotificationService
	log *zap.Logger
}

func NewNotificationHandler(db *gorm.DB, clk clock.Clock, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		svc: alerting.NewNotificationService(db, clk, log),
		log: log,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	unreadOnly := c.Query("unread_only") == "true"

	uas, err := h.svc.ListForUser(userID, alerting.ListOptions{Limit: limit, Offset: offset, UnreadOnly: unreadOnly})
	if err != nil {
		h.log.Error("list notifications failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": uas, "count": len(uas)})
}

func (h *NotificationHandler) Unread(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	uas, err := h.svc.ListForUser(userID, alerting.ListOptions{Limit: limit, UnreadOnly: true})
	if err != nil {
		h.log.Error("list unread failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": uas, "count": len(uas)})
}

func (h *NotificationHandler) Summary(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	summary, err := h.svc.Summary(userID)
	if err != nil {
		h.log.Error("summary failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *NotificationHandler) ByType(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	uas, err := h.svc.ListByType(userID, models.RuleType(c.Query("type")))
	if err != nil {
		if errors.Is(err, alerting.ErrInvalidRuleType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be weekly, preventive or frequent"})
			return
		}
		h.log.Error("list by type failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": uas, "count": len(uas)})
}

func (h *NotificationHandler) ByPriority(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	uas, err := h.svc.ListByPriority(userID, models.Priority(c.Query("priority")))
	if err != nil {
		if errors.Is(err, alerting.ErrInvalidPriority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be low, medium, high or urgent"})
			return
		}
		h.log.Error("list by priority failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": uas, "count": len(uas)})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	h.mark(c, h.svc.MarkRead, "read")
}

func (h *NotificationHandler) MarkAsDismissed(c *gin.Context) {
	h.mark(c, h.svc.MarkDismissed, "dismissed")
}

func (h *NotificationHandler) mark(c *gin.Context, fn func(userID, alertID uuid.UUID) error, state string) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	if err := fn(userID, alertID); err != nil {
		if errors.Is(err, alerting.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found or not assigned to user"})
			return
		}
		h.log.Error("mark notification failed", zap.String("state", state), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert marked as " + state})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	count, err := h.svc.MarkAllRead(userID)
	if err != nil {
		h.log.Error("mark all read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all notifications marked as read", "count": count})
}

func (h *NotificationHandler) BulkAction(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	var req types.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	count, err := h.svc.BulkAction(userID, req)
	if err != nil {
		switch {
		case errors.Is(err, alerting.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{"error": "action must be markAllRead or dismissAllRead"})
		case errors.Is(err, alerting.ErrInvalidRuleType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rule type filter"})
		case errors.Is(err, alerting.ErrInvalidPriority):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown priority filter"})
		default:
			h.log.Error("bulk action failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not apply bulk action"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": req.Action, "count": count})
}

func (h *NotificationHandler) CleanupOld(c *gin.Context) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}
	var req types.CleanupOldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days_old must be a positive integer"})
		return
	}

	count, err := h.svc.CleanupOld(userID, req.DaysOld)
	if err != nil {
		h.log.Error("cleanup old failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clean up notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": count})
}
