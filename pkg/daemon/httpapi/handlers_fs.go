package httpapi

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
)

// entryRequest is the body shared by the write, mkdir, create-file, delete
// and favorites endpoints.
type entryRequest struct {
	RootID  string  `json:"rootId"`
	Path    string  `json:"path"`
	Name    string  `json:"name"`
	Content *string `json:"content"`
}

func (s *Server) bindEntry(c *gin.Context) (entryRequest, bool) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return req, false
	}
	if req.RootID == "" {
		s.badRequest(c, "rootId is required")
		return req, false
	}
	return req, true
}

func (s *Server) listRoots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roots": s.files.Roots().Roots()})
}

func (s *Server) list(c *gin.Context) {
	rootID := c.Query("rootId")
	if rootID == "" {
		s.badRequest(c, "rootId is required")
		return
	}
	listing, err := s.files.List(rootID, c.Query("path"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (s *Server) readText(c *gin.Context) {
	rootID, rel := c.Query("rootId"), c.Query("path")
	if rootID == "" || rel == "" {
		s.badRequest(c, "rootId and path are required")
		return
	}
	file, err := s.files.ReadText(rootID, rel)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (s *Server) writeText(c *gin.Context) {
	req, ok := s.bindEntry(c)
	if !ok {
		return
	}
	if req.Path == "" || req.Content == nil {
		s.badRequest(c, "rootId, path and content are required")
		return
	}
	if err := s.files.WriteText(req.RootID, req.Path, *req.Content); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) mkdir(c *gin.Context) {
	req, ok := s.bindEntry(c)
	if !ok {
		return
	}
	if req.Name == "" {
		s.badRequest(c, "rootId and name are required")
		return
	}
	p, err := s.files.Mkdir(req.RootID, req.Path, req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "path": p.RelativePath})
}

func (s *Server) createFile(c *gin.Context) {
	req, ok := s.bindEntry(c)
	if !ok {
		return
	}
	if req.Name == "" {
		s.badRequest(c, "rootId and name are required")
		return
	}
	p, err := s.files.CreateFile(req.RootID, req.Path, req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "path": p.RelativePath})
}

func (s *Server) deleteEntry(c *gin.Context) {
	req, ok := s.bindEntry(c)
	if !ok {
		return
	}
	if req.Path == "" {
		s.badRequest(c, "rootId and path are required")
		return
	}
	method, err := s.files.Delete(c.Request.Context(), req.RootID, req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "method": method})
}

func (s *Server) meta(c *gin.Context) {
	rootID, rel := c.Query("rootId"), c.Query("path")
	if rootID == "" || rel == "" {
		s.badRequest(c, "rootId and path are required")
		return
	}
	m, err := s.files.Meta(rootID, rel)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) raw(c *gin.Context) {
	rootID, rel := c.Query("rootId"), c.Query("path")
	if rootID == "" || rel == "" {
		s.badRequest(c, "rootId and path are required")
		return
	}
	f, info, mt, err := s.files.Open(rootID, rel)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", contentType(mt))
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func (s *Server) upload(c *gin.Context) {
	rootID := c.Query("rootId")
	if rootID == "" {
		s.badRequest(c, "rootId is required")
		return
	}

	headers := make(map[string]string, 4)
	for _, h := range []string{"x-upload-id", "x-file-path", "x-chunk-index", "x-total-chunks"} {
		v := c.GetHeader(h)
		if v == "" {
			s.badRequest(c, fmt.Sprintf("missing %s header", h))
			return
		}
		headers[h] = v
	}

	filePath, err := url.PathUnescape(headers["x-file-path"])
	if err != nil {
		s.badRequest(c, "invalid x-file-path header")
		return
	}
	index, err := strconv.Atoi(headers["x-chunk-index"])
	if err != nil || index < 0 {
		s.badRequest(c, "invalid x-chunk-index")
		return
	}
	total, err := strconv.Atoi(headers["x-total-chunks"])
	if err != nil || total < 0 {
		s.badRequest(c, "invalid x-total-chunks")
		return
	}

	st, err := s.files.WriteChunk(filemanager.Chunk{
		RootID:   rootID,
		DirPath:  c.Query("path"),
		UploadID: headers["x-upload-id"],
		FilePath: filePath,
		Index:    index,
		Total:    total,
		Body:     c.Request.Body,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "completed": st.Done, "path": st.Path})
}

type uploadCancelRequest struct {
	RootID    string   `json:"rootId"`
	UploadIDs []string `json:"uploadIds"`
}

func (s *Server) uploadCancel(c *gin.Context) {
	var req uploadCancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}
	if req.RootID == "" {
		s.badRequest(c, "rootId is required")
		return
	}

	ids := make([]string, 0, len(req.UploadIDs))
	for _, id := range req.UploadIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		if err := s.files.CancelUploads(req.RootID, ids); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cleaned": len(ids)})
}

func (s *Server) download(c *gin.Context) {
	rootID := c.Query("rootId")
	paths := make([]string, 0, 1)
	for _, p := range c.QueryArray("path") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if rootID == "" || len(paths) == 0 {
		s.badRequest(c, "rootId and path are required")
		return
	}

	d, err := s.files.PrepareDownload(rootID, paths)
	if err != nil {
		s.fail(c, err)
		return
	}

	if d.IsSingleFile() {
		f, info, mt, err := s.files.Open(rootID, d.Entries[0].RelativePath)
		if err != nil {
			s.fail(c, err)
			return
		}
		defer f.Close()
		c.Header("Content-Type", contentType(mt))
		c.Header("Content-Disposition", attachment(info.Name()))
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
		return
	}

	name := d.ArchiveName(c.Query("archiveName"))
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", attachment(name))
	c.Status(http.StatusOK)
	if err := d.WriteZip(c.Request.Context(), c.Writer); err != nil {
		// Headers are out; the client sees a truncated archive.
		s.log.Error("archive failed", "root", rootID, "paths", paths, "error", err)
	}
}

func (s *Server) listFavorites(c *gin.Context) {
	items, err := s.favorites.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) addFavorite(c *gin.Context) {
	req, ok := s.bindEntry(c)
	if !ok {
		return
	}
	items, err := s.favorites.Add(req.RootID, req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) removeFavorite(c *gin.Context) {
	req, ok := s.bindEntry(c)
	if !ok {
		return
	}
	items, err := s.favorites.Remove(req.RootID, req.Path)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// contentType adds a utf-8 charset to text types.
func contentType(mt string) string {
	if filemanager.IsTextType(mt) {
		return mt + "; charset=utf-8"
	}
	return mt
}

// attachment builds a Content-Disposition header for name. Non-ASCII names
// are sent in the RFC 2231 extended form.
func attachment(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}
