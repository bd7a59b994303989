package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tintcrm/billing-service/pkg/logger"
)

// RequestLogger логирует каждый HTTP-запрос
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Infow("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"clientIP", c.ClientIP(),
		)
	}
}
