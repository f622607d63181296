// Package httpapi serves the paneo HTTP API with gin.
//
// Routes live under /api/fs, /api/auth and /api/system. Errors are reported
// as {"error": message} with a status code derived from the sentinel error
// that caused them.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamesainslie/paneo/pkg/daemon/favorites"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/paneo/auth"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/startup"
)

// Deps holds the services the API exposes.
type Deps struct {
	Files     *filemanager.Manager
	Jobs      *jobs.Supervisor
	Favorites *favorites.Service
	Auth      *auth.Authenticator

	// Startup reports the startup checks. Nil reports no problems.
	Startup func() startup.Status
}

// Server is the HTTP API.
type Server struct {
	files     *filemanager.Manager
	jobs      *jobs.Supervisor
	favorites *favorites.Service
	auth      *auth.Authenticator
	startup   func() startup.Status
	log       *logging.Logger

	engine *gin.Engine
}

// New builds the API and its routes.
func New(d Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		files:     d.Files,
		jobs:      d.Jobs,
		favorites: d.Favorites,
		auth:      d.Auth,
		startup:   d.Startup,
		log:       logging.Get("http"),
	}
	if s.auth == nil {
		s.auth = auth.New(auth.Config{})
	}
	if s.startup == nil {
		s.startup = func() startup.Status {
			return startup.Status{FatalErrors: []string{}, Warnings: []string{}, DocumentationURL: startup.DocumentationURL}
		}
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger(), s.requireAuth())
	s.routes(engine)
	s.engine = engine
	return s
}

// Handler returns the http.Handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(r *gin.Engine) {
	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.login)
	authGroup.POST("/logout", s.logout)
	authGroup.GET("/status", s.authStatus)

	api.GET("/system/startup", s.startupStatus)

	fs := api.Group("/fs")
	fs.GET("/roots", s.listRoots)
	fs.GET("/list", s.list)
	fs.GET("/read", s.readText)
	fs.POST("/write", s.writeText)
	fs.POST("/mkdir", s.mkdir)
	fs.POST("/create-file", s.createFile)
	fs.POST("/delete", s.deleteEntry)
	fs.GET("/meta", s.meta)
	fs.GET("/raw", s.raw)
	fs.POST("/upload", s.upload)
	fs.POST("/upload-cancel", s.uploadCancel)
	fs.GET("/download", s.download)

	fs.GET("/favorites", s.listFavorites)
	fs.POST("/favorites-add", s.addFavorite)
	fs.POST("/favorites-remove", s.removeFavorite)

	fs.POST("/copy", s.copySync)
	fs.POST("/copy-start", s.startCopy)
	fs.GET("/copy-status", s.copyStatus)
	fs.POST("/copy-cancel", s.cancelCopy)
	fs.GET("/copy-jobs", s.listJobs)
	fs.POST("/move", s.move)
}
