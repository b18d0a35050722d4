package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/pkg/middleware/requestid"
)

// Audit logs successful writes with the acting teacher. Failed requests are skipped.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}
		logger.Info("audit",
			zap.String("action", action),
			zap.String("teacher_id", TeacherID(c)),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestid.Value(c)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
