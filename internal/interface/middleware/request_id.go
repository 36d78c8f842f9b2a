package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/pkg/helpers"
)

const requestIDHeader = "X-Request-ID"

// RequestContext assigns a request_id (reusing a well-formed inbound X-Request-ID)
// and stores a request-scoped logger in the request context.
func RequestContext(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		entry := log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"client_ip":  clientIP(c),
		})
		c.Request = c.Request.WithContext(helpers.WithLogger(c.Request.Context(), entry))
		c.Next()
	}
}
