package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ContextUserID is the gin context key holding the caller's user id.
// Authentication itself happens upstream; the gateway forwards the
// authenticated user in the X-User-ID header.
const ContextUserID = "userID"

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		uid, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-User-ID header"})
			return
		}
		c.Set(ContextUserID, uid.String())
		c.Next()
	}
}

// UserID reads the authenticated user id set by RequireUser.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(ContextUserID)
	if raw == "" {
		return uuid.Nil, false
	}
	uid, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return uid, true
}

// MutationQuota caps state-changing requests per user per minute with
// a shared redis counter, so the limit holds across API replicas.
func MutationQuota(rdb *redis.Client, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("quota:user:%s:%d", userID, time.Now().Unix()/60)
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down must not take the API with it.
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, time.Minute)
		}
		if count > int64(perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "mutation quota exceeded"})
			return
		}
		c.Next()
	}
}
