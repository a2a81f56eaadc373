package handler

import (
	"net/http"
	"time"

	"retailpos/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports liveness of the process and its dependencies. Degraded
// dependencies flip the status but keep the 200 so orchestrators don't
// restart a pod over a flaky SMTP relay.
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := c.Request.Context(), func() {}
		defer cancel()

		status := "ok"
		checks := gin.H{}

		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			checks["database"] = "down"
			status = "degraded"
		} else {
			checks["database"] = "up"
		}

		if err := rdb.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			status = "degraded"
		} else {
			checks["redis"] = "up"
		}

		checks["smtp_circuit"] = smtpCB.State().String()

		c.JSON(http.StatusOK, gin.H{
			"status": status,
			"time":   time.Now().UTC().Format(time.RFC3339),
			"checks": checks,
		})
	}
}
