package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
)

// shutdownTimeout bounds how long Close waits for HTTP requests in flight.
const shutdownTimeout = 10 * time.Second

// Config holds daemon listener configuration.
type Config struct {
	// SocketPath is the unix socket of the control service.
	SocketPath string

	// Listen is the HTTP address. Empty disables the HTTP API.
	Listen string
}

// Server is the paneod server: the control service on a unix socket and the
// HTTP API on a TCP address.
type Server struct {
	cfg      Config
	grpc     *grpc.Server
	listener net.Listener

	http         *http.Server
	httpListener net.Listener
	log          *logging.Logger
}

// NewServer creates the listeners and registers svc. handler serves HTTP
// when cfg.Listen is set.
func NewServer(cfg Config, svc paneov1.ControlServer, handler http.Handler) (*Server, error) {
	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(context.Background(), "unix", cfg.SocketPath)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:      cfg,
		grpc:     grpc.NewServer(),
		listener: listener,
		log:      logging.Get("daemon"),
	}
	paneov1.RegisterControlServer(srv.grpc, svc)

	if cfg.Listen != "" && handler != nil {
		hl, err := lc.Listen(context.Background(), "tcp", cfg.Listen)
		if err != nil {
			_ = listener.Close()
			_ = os.Remove(cfg.SocketPath)
			return nil, err
		}
		srv.httpListener = hl
		srv.http = &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return srv, nil
}

// HTTPAddr returns the bound HTTP address, or "" when HTTP is disabled.
func (s *Server) HTTPAddr() string {
	if s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// SocketPath returns the control socket path.
func (s *Server) SocketPath() string {
	return s.cfg.SocketPath
}

// Serve serves both listeners. It returns when Close is called or as soon as
// either listener fails, stopping the other one.
func (s *Server) Serve() error {
	var g errgroup.Group

	g.Go(func() error {
		s.log.Info("control socket listening", "socket", s.cfg.SocketPath)
		if err := s.grpc.Serve(s.listener); err != nil {
			if s.http != nil {
				_ = s.http.Close()
			}
			return err
		}
		return nil
	})

	if s.http != nil {
		g.Go(func() error {
			s.log.Info("http listening", "addr", s.HTTPAddr())
			err := s.http.Serve(s.httpListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			s.log.Error("http server failed", "error", err)
			s.grpc.Stop()
			return err
		})
	}

	return g.Wait()
}

// Close stops the server and cleans up.
func (s *Server) Close() error {
	var httpErr error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		httpErr = s.http.Shutdown(ctx)
		cancel()
	}
	s.grpc.GracefulStop()

	if err := os.RemoveAll(s.cfg.SocketPath); err != nil {
		return err
	}
	return httpErr
}
