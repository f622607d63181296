package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger logs every request once it has been served.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			s.log.Error("request", kv...)
		case c.Writer.Status() >= http.StatusBadRequest:
			s.log.Warn("request", kv...)
		default:
			s.log.Debug("request", kv...)
		}
	}
}

// requireAuth rejects unauthenticated API requests when a password is set.
// The auth endpoints stay open so clients can log in.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.auth.Enabled() {
			c.Next()
			return
		}

		p := c.Request.URL.Path
		if !strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/api/auth/") {
			c.Next()
			return
		}

		if !s.auth.Authenticated(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
