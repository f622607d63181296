package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
)

// transferRequest is the body of copy, copy-start and move. ToDirPath is a
// pointer so an empty destination (the root) can be told apart from a
// missing one.
type transferRequest struct {
	FromRootID        string  `json:"fromRootId"`
	FromPath          string  `json:"fromPath"`
	ToRootID          string  `json:"toRootId"`
	ToDirPath         *string `json:"toDirPath"`
	NewName           string  `json:"newName"`
	OverwriteExisting *bool   `json:"overwriteExisting"`
}

func (s *Server) bindTransfer(c *gin.Context) (transferRequest, bool) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return req, false
	}
	if req.FromRootID == "" || req.FromPath == "" || req.ToRootID == "" || req.ToDirPath == nil {
		s.badRequest(c, "fromRootId, fromPath, toRootId and toDirPath are required")
		return req, false
	}
	return req, true
}

// copyRequest converts req. Overwrite defaults to true when omitted.
func (req transferRequest) copyRequest() filemanager.CopyRequest {
	overwrite := true
	if req.OverwriteExisting != nil {
		overwrite = *req.OverwriteExisting
	}
	return filemanager.CopyRequest{
		FromRootID: req.FromRootID,
		FromPath:   req.FromPath,
		ToRootID:   req.ToRootID,
		ToDirPath:  *req.ToDirPath,
		NewName:    req.NewName,
		Overwrite:  overwrite,
	}
}

func (s *Server) copySync(c *gin.Context) {
	req, ok := s.bindTransfer(c)
	if !ok {
		return
	}
	res, err := s.files.Copy(c.Request.Context(), req.copyRequest())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}

func (s *Server) startCopy(c *gin.Context) {
	req, ok := s.bindTransfer(c)
	if !ok {
		return
	}
	id, err := s.jobs.Start(req.copyRequest())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": id})
}

func (s *Server) copyStatus(c *gin.Context) {
	id := c.Query("jobId")
	if id == "" {
		s.badRequest(c, "jobId is required")
		return
	}
	job, err := s.jobs.Status(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type jobRequest struct {
	JobID string `json:"jobId"`
}

func (s *Server) cancelCopy(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JobID == "" {
		s.badRequest(c, "jobId is required")
		return
	}
	job, err := s.jobs.Cancel(req.JobID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobId": job.ID, "status": job.Status})
}

func (s *Server) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.jobs.List()})
}

func (s *Server) move(c *gin.Context) {
	req, ok := s.bindTransfer(c)
	if !ok {
		return
	}
	err := s.files.Move(c.Request.Context(), filemanager.MoveRequest{
		FromRootID: req.FromRootID,
		FromPath:   req.FromPath,
		ToRootID:   req.ToRootID,
		ToDirPath:  *req.ToDirPath,
		NewName:    req.NewName,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
