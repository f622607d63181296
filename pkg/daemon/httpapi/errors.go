package httpapi

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

// errBadRequest marks malformed requests detected by the handlers themselves.
var errBadRequest = errors.New("bad request")

// statusTable maps sentinel errors to status codes. The first match wins.
var statusTable = []struct {
	err  error
	code int
}{
	{errBadRequest, http.StatusBadRequest},
	{roots.ErrUnknownRoot, http.StatusBadRequest},
	{roots.ErrInvalidPath, http.StatusBadRequest},
	{copier.ErrSameSource, http.StatusBadRequest},
	{copier.ErrIntoSelf, http.StatusBadRequest},
	{filemanager.ErrInvalidName, http.StatusBadRequest},
	{filemanager.ErrNotDirectory, http.StatusBadRequest},
	{filemanager.ErrNotFile, http.StatusBadRequest},
	{filemanager.ErrTooLarge, http.StatusBadRequest},
	{filemanager.ErrBinary, http.StatusBadRequest},
	{filemanager.ErrInvalidUpload, http.StatusBadRequest},
	{filemanager.ErrDestinationExists, http.StatusConflict},
	{fs.ErrExist, http.StatusConflict},
	{jobs.ErrNotFound, http.StatusNotFound},
	{fs.ErrNotExist, http.StatusNotFound},
	{fs.ErrPermission, http.StatusForbidden},
}

// statusFor returns the HTTP status code for err.
func statusFor(err error) int {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error response.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

// badRequest writes a 400 with msg.
func (s *Server) badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
