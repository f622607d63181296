package paneov1

import (
	"time"

	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

// Root is a configured root directory.
type Root struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type RootsRequest struct{}

type RootsResponse struct {
	Roots []Root `json:"roots"`
}

type ListRequest struct {
	RootID string `json:"rootId"`
	Path   string `json:"path"`
}

// Entry is one item of a directory listing.
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	IsDirectory bool      `json:"isDirectory"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mtime"`
}

type ListResponse struct {
	RootID     string  `json:"rootId"`
	RootName   string  `json:"rootName"`
	Path       string  `json:"path"`
	ParentPath *string `json:"parentPath"`
	Entries    []Entry `json:"entries"`
}

// CopyRequest names a source entry and the directory to copy it into.
type CopyRequest struct {
	FromRootID        string `json:"fromRootId"`
	FromPath          string `json:"fromPath"`
	ToRootID          string `json:"toRootId"`
	ToDirPath         string `json:"toDirPath"`
	NewName           string `json:"newName,omitempty"`
	OverwriteExisting bool   `json:"overwriteExisting"`
}

type StartCopyResponse struct {
	JobID string `json:"jobId"`
}

type CopyResponse struct {
	OK     bool         `json:"ok"`
	Result types.Result `json:"result"`
}

type JobRequest struct {
	JobID string `json:"jobId"`
}

// Job is a snapshot of a background copy.
type Job struct {
	JobID      string         `json:"jobId"`
	Status     string         `json:"status"`
	Result     *types.Result  `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	Progress   types.Progress `json:"progress"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Request    CopyRequest    `json:"request"`
}

type CancelCopyResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

type ListJobsRequest struct{}

type ListJobsResponse struct {
	Jobs []Job `json:"jobs"`
}

type MoveRequest struct {
	FromRootID string `json:"fromRootId"`
	FromPath   string `json:"fromPath"`
	ToRootID   string `json:"toRootId"`
	ToDirPath  string `json:"toDirPath"`
	NewName    string `json:"newName,omitempty"`
}

type MoveResponse struct {
	OK bool `json:"ok"`
}

type StatusRequest struct{}

// DaemonStatus reports daemon health.
type DaemonStatus struct {
	Running       bool     `json:"running"`
	PID           int      `json:"pid"`
	UptimeSeconds int64    `json:"uptimeSeconds"`
	MemoryBytes   int64    `json:"memoryBytes"`
	JobsRunning   int      `json:"jobsRunning"`
	JobsTotal     int      `json:"jobsTotal"`
	Listen        string   `json:"listen"`
	Roots         []Root   `json:"roots"`
	Version       string   `json:"version,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

type ShutdownRequest struct{}

type ShutdownResponse struct {
	Success bool `json:"success"`
}
