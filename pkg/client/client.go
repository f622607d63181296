// Package client provides a client for connecting to the paneod daemon.
// It wraps the gRPC client with convenience methods and maps status codes
// back to the sentinel errors of the daemon packages.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

var (
	// ErrDaemonNotRunning is returned when the daemon socket is missing or refuses connections.
	ErrDaemonNotRunning = errors.New("daemon is not running")

	// ErrInvalidArgument is returned when the daemon rejects a request as malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied is returned when the daemon lacks access to a path.
	ErrPermissionDenied = errors.New("permission denied")
)

// Client connects to the paneod daemon via gRPC.
type Client struct {
	conn    *grpc.ClientConn
	control paneov1.ControlClient
}

// Connect establishes a connection to the paneod daemon.
// Uses a default timeout of 5 seconds.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext establishes a connection to the paneod daemon with a custom context.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: socket not found at %s", ErrDaemonNotRunning, socketPath)
	}

	//nolint:staticcheck // grpc.DialContext is deprecated but NewClient doesn't support blocking
	conn, err := grpc.DialContext(
		ctx,
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}

	return &Client{
		conn:    conn,
		control: paneov1.NewControlClient(conn),
	}, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Roots returns the roots served by the daemon.
func (c *Client) Roots(ctx context.Context) ([]paneov1.Root, error) {
	resp, err := c.control.Roots(ctx, &paneov1.RootsRequest{})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp.Roots, nil
}

// List lists a directory.
func (c *Client) List(ctx context.Context, rootID, path string) (*paneov1.ListResponse, error) {
	resp, err := c.control.List(ctx, &paneov1.ListRequest{RootID: rootID, Path: path})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp, nil
}

// Copy runs a copy on the daemon and waits for it to finish.
func (c *Client) Copy(ctx context.Context, req paneov1.CopyRequest) (types.Result, error) {
	resp, err := c.control.Copy(ctx, &req)
	if err != nil {
		return types.Result{}, fromStatus(err)
	}
	return resp.Result, nil
}

// StartCopy launches a background copy and returns its job id.
func (c *Client) StartCopy(ctx context.Context, req paneov1.CopyRequest) (string, error) {
	resp, err := c.control.StartCopy(ctx, &req)
	if err != nil {
		return "", fromStatus(err)
	}
	return resp.JobID, nil
}

// CopyStatus returns a snapshot of a copy job.
func (c *Client) CopyStatus(ctx context.Context, jobID string) (*paneov1.Job, error) {
	job, err := c.control.CopyStatus(ctx, &paneov1.JobRequest{JobID: jobID})
	if err != nil {
		return nil, fromStatus(err)
	}
	return job, nil
}

// CancelCopy requests cancellation of a job and returns the resulting status.
func (c *Client) CancelCopy(ctx context.Context, jobID string) (string, error) {
	resp, err := c.control.CancelCopy(ctx, &paneov1.JobRequest{JobID: jobID})
	if err != nil {
		return "", fromStatus(err)
	}
	return resp.Status, nil
}

// ListJobs returns every job known to the daemon ordered by start time.
func (c *Client) ListJobs(ctx context.Context) ([]paneov1.Job, error) {
	resp, err := c.control.ListJobs(ctx, &paneov1.ListJobsRequest{})
	if err != nil {
		return nil, fromStatus(err)
	}
	return resp.Jobs, nil
}

// Move relocates an entry.
func (c *Client) Move(ctx context.Context, req paneov1.MoveRequest) error {
	if _, err := c.control.Move(ctx, &req); err != nil {
		return fromStatus(err)
	}
	return nil
}

// Status returns the current status of the daemon.
func (c *Client) Status(ctx context.Context) (*paneov1.DaemonStatus, error) {
	st, err := c.control.Status(ctx, &paneov1.StatusRequest{})
	if err != nil {
		return nil, fromStatus(err)
	}
	return st, nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.control.Shutdown(ctx, &paneov1.ShutdownRequest{})
	if err != nil {
		return fromStatus(err)
	}
	if !resp.Success {
		return errors.New("shutdown request was not successful")
	}
	return nil
}

// rpcError keeps the daemon's message while matching a local sentinel.
type rpcError struct {
	sentinel error
	msg      string
}

func (e *rpcError) Error() string { return e.msg }
func (e *rpcError) Unwrap() error { return e.sentinel }

var sentinels = map[codes.Code]error{
	codes.NotFound:         jobs.ErrNotFound,
	codes.AlreadyExists:    filemanager.ErrDestinationExists,
	codes.InvalidArgument:  ErrInvalidArgument,
	codes.Canceled:         copier.ErrCanceled,
	codes.PermissionDenied: ErrPermissionDenied,
	codes.Unavailable:      ErrDaemonNotRunning,
}

// fromStatus converts a gRPC status error into an error matching a sentinel.
// Errors without a known code are returned unchanged.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	sentinel, ok := sentinels[st.Code()]
	if !ok {
		return err
	}
	return &rpcError{sentinel: sentinel, msg: st.Message()}
}
