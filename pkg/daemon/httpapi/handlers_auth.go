package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	if !s.auth.Enabled() {
		c.JSON(http.StatusOK, gin.H{"success": true, "requiresPassword": false, "isAuthenticated": true})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}
	if !s.auth.VerifyPassword(req.Password) {
		s.log.Warn("login rejected", "client", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	http.SetCookie(c.Writer, s.auth.SessionCookie())
	s.log.Info("login", "client", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"success": true, "requiresPassword": true, "isAuthenticated": true})
}

func (s *Server) logout(c *gin.Context) {
	if s.auth.Enabled() {
		http.SetCookie(c.Writer, s.auth.ClearCookie())
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) authStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"requiresPassword": s.auth.Enabled(),
		"isAuthenticated":  s.auth.Authenticated(c.Request),
	})
}

func (s *Server) startupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.startup())
}
