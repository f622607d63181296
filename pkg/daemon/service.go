package daemon

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"runtime"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
)

// Service implements the paneo.v1.Control gRPC service.
type Service struct {
	paneov1.UnimplementedControlServer

	files     *filemanager.Manager
	jobs      *jobs.Supervisor
	listen    string
	version   string
	warnings  []string
	startTime time.Time
	log       *logging.Logger

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithListenAddr sets the HTTP address reported by Status.
func WithListenAddr(addr string) ServiceOption {
	return func(s *Service) { s.listen = addr }
}

// WithVersion sets the version reported by Status.
func WithVersion(v string) ServiceOption {
	return func(s *Service) { s.version = v }
}

// WithWarnings sets startup warnings reported by Status.
func WithWarnings(w []string) ServiceOption {
	return func(s *Service) { s.warnings = w }
}

// NewService creates a new gRPC service.
func NewService(files *filemanager.Manager, sup *jobs.Supervisor, opts ...ServiceOption) *Service {
	s := &Service{
		files:     files,
		jobs:      sup,
		startTime: time.Now(),
		log:       logging.Get("daemon"),
		shutdown:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShutdownRequested is closed once a client calls Shutdown.
func (s *Service) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

// Roots lists the configured roots.
func (s *Service) Roots(_ context.Context, _ *paneov1.RootsRequest) (*paneov1.RootsResponse, error) {
	return &paneov1.RootsResponse{Roots: s.rootList()}, nil
}

func (s *Service) rootList() []paneov1.Root {
	rs := s.files.Roots().Roots()
	out := make([]paneov1.Root, 0, len(rs))
	for _, r := range rs {
		out = append(out, paneov1.Root{ID: r.ID, Name: r.Name, Path: r.Path})
	}
	return out
}

// List lists a directory.
func (s *Service) List(_ context.Context, req *paneov1.ListRequest) (*paneov1.ListResponse, error) {
	listing, err := s.files.List(req.RootID, req.Path)
	if err != nil {
		return nil, toStatus(err)
	}

	entries := make([]paneov1.Entry, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		entries = append(entries, paneov1.Entry{
			Name:        e.Name,
			Path:        e.Path,
			IsDirectory: e.IsDirectory,
			Size:        e.Size,
			ModTime:     e.ModTime,
		})
	}
	return &paneov1.ListResponse{
		RootID:     listing.RootID,
		RootName:   listing.RootName,
		Path:       listing.Path,
		ParentPath: listing.ParentPath,
		Entries:    entries,
	}, nil
}

// StartCopy launches a background copy.
func (s *Service) StartCopy(_ context.Context, req *paneov1.CopyRequest) (*paneov1.StartCopyResponse, error) {
	id, err := s.jobs.Start(copyRequest(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return &paneov1.StartCopyResponse{JobID: id}, nil
}

// CopyStatus returns a snapshot of a copy job.
func (s *Service) CopyStatus(_ context.Context, req *paneov1.JobRequest) (*paneov1.Job, error) {
	job, err := s.jobs.Status(req.JobID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := jobToAPI(job)
	return &out, nil
}

// CancelCopy requests cancellation of a copy job.
func (s *Service) CancelCopy(_ context.Context, req *paneov1.JobRequest) (*paneov1.CancelCopyResponse, error) {
	job, err := s.jobs.Cancel(req.JobID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &paneov1.CancelCopyResponse{JobID: job.ID, Status: string(job.Status)}, nil
}

// ListJobs returns every job ordered by start time.
func (s *Service) ListJobs(_ context.Context, _ *paneov1.ListJobsRequest) (*paneov1.ListJobsResponse, error) {
	list := s.jobs.List()
	out := make([]paneov1.Job, 0, len(list))
	for _, j := range list {
		out = append(out, jobToAPI(j))
	}
	return &paneov1.ListJobsResponse{Jobs: out}, nil
}

// Copy runs a copy to completion before returning.
func (s *Service) Copy(ctx context.Context, req *paneov1.CopyRequest) (*paneov1.CopyResponse, error) {
	res, err := s.files.Copy(ctx, copyRequest(req))
	if err != nil {
		return nil, toStatus(err)
	}
	return &paneov1.CopyResponse{OK: true, Result: res}, nil
}

// Move relocates an entry.
func (s *Service) Move(ctx context.Context, req *paneov1.MoveRequest) (*paneov1.MoveResponse, error) {
	err := s.files.Move(ctx, filemanager.MoveRequest{
		FromRootID: req.FromRootID,
		FromPath:   req.FromPath,
		ToRootID:   req.ToRootID,
		ToDirPath:  req.ToDirPath,
		NewName:    req.NewName,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &paneov1.MoveResponse{OK: true}, nil
}

// Status returns daemon health information.
func (s *Service) Status(_ context.Context, _ *paneov1.StatusRequest) (*paneov1.DaemonStatus, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	running, total := s.jobs.Counts()
	return &paneov1.DaemonStatus{
		Running:       true,
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MemoryBytes:   int64(mem.Alloc),
		JobsRunning:   running,
		JobsTotal:     total,
		Listen:        s.listen,
		Roots:         s.rootList(),
		Version:       s.version,
		Warnings:      s.warnings,
	}, nil
}

// Shutdown asks the daemon to exit after the response is sent.
func (s *Service) Shutdown(_ context.Context, _ *paneov1.ShutdownRequest) (*paneov1.ShutdownResponse, error) {
	s.shutdownOnce.Do(func() {
		s.log.Info("shutdown requested")
		close(s.shutdown)
	})
	return &paneov1.ShutdownResponse{Success: true}, nil
}

func copyRequest(req *paneov1.CopyRequest) filemanager.CopyRequest {
	return filemanager.CopyRequest{
		FromRootID: req.FromRootID,
		FromPath:   req.FromPath,
		ToRootID:   req.ToRootID,
		ToDirPath:  req.ToDirPath,
		NewName:    req.NewName,
		Overwrite:  req.OverwriteExisting,
	}
}

func jobToAPI(j jobs.Job) paneov1.Job {
	return paneov1.Job{
		JobID:      j.ID,
		Status:     string(j.Status),
		Result:     j.Result,
		Error:      j.Error,
		Progress:   j.Progress,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Request: paneov1.CopyRequest{
			FromRootID:        j.Request.FromRootID,
			FromPath:          j.Request.FromPath,
			ToRootID:          j.Request.ToRootID,
			ToDirPath:         j.Request.ToDirPath,
			NewName:           j.Request.NewName,
			OverwriteExisting: j.Request.Overwrite,
		},
	}
}

// codeTable maps sentinel errors to gRPC codes. The first match wins.
var codeTable = []struct {
	err  error
	code codes.Code
}{
	{roots.ErrUnknownRoot, codes.InvalidArgument},
	{roots.ErrInvalidPath, codes.InvalidArgument},
	{copier.ErrSameSource, codes.InvalidArgument},
	{copier.ErrIntoSelf, codes.InvalidArgument},
	{filemanager.ErrInvalidName, codes.InvalidArgument},
	{filemanager.ErrNotDirectory, codes.InvalidArgument},
	{filemanager.ErrNotFile, codes.InvalidArgument},
	{filemanager.ErrDestinationExists, codes.AlreadyExists},
	{copier.ErrCanceled, codes.Canceled},
	{context.Canceled, codes.Canceled},
	{jobs.ErrNotFound, codes.NotFound},
	{fs.ErrNotExist, codes.NotFound},
	{fs.ErrPermission, codes.PermissionDenied},
	{copier.ErrCopyFailed, codes.Internal},
}

// toStatus converts err into a gRPC status error.
func toStatus(err error) error {
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return status.Error(e.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}
