// Package main is paneod, the paneo file manager daemon. It serves the HTTP
// API and the control socket used by the paneo CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jamesainslie/paneo/pkg/daemon"
	"github.com/jamesainslie/paneo/pkg/daemon/favorites"
	"github.com/jamesainslie/paneo/pkg/daemon/httpapi"
	"github.com/jamesainslie/paneo/pkg/daemon/jobs"
	"github.com/jamesainslie/paneo/pkg/daemon/store"
	"github.com/jamesainslie/paneo/pkg/daemon/watcher"
	"github.com/jamesainslie/paneo/pkg/paneo/auth"
	"github.com/jamesainslie/paneo/pkg/paneo/config"
	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/roots"
	"github.com/jamesainslie/paneo/pkg/paneo/startup"
	"github.com/jamesainslie/paneo/pkg/paneo/trash"
)

// Build-time variables set by go build -ldflags.
var version = "dev"

// jobDrainTimeout bounds how long shutdown waits for canceled copies to unwind.
const jobDrainTimeout = 10 * time.Second

func main() {
	cfgFile := flag.String("config", "", "config file (default: ~/.config/paneo/config.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("paneod", version)
		return
	}

	if err := run(*cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "paneod:", err)
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	statusPath := config.DefaultStatusPath()
	if err := daemon.WriteStatusStarting(statusPath); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}

	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return fail(statusPath, err)
	}

	logCfg, err := cfg.Logging.Logging()
	if err != nil {
		return fail(statusPath, err)
	}
	if err := logging.Init(logCfg); err != nil {
		return fail(statusPath, fmt.Errorf("init logging: %w", err))
	}
	defer logging.Close()
	log := logging.Get("daemon")

	st := startup.NewChecker().Check(cfg.Roots)
	for _, w := range st.Warnings {
		log.Warn("startup warning", "warning", w)
	}
	if !st.OK() {
		return fail(statusPath, errors.New(strings.Join(st.FatalErrors, "; ")))
	}
	if err := cfg.Validate(); err != nil {
		return fail(statusPath, err)
	}

	if err := daemon.RecoverFromStaleDaemon(cfg.Server.PIDPath, cfg.Server.Socket, cfg.Favorites.Path); err != nil {
		return fail(statusPath, err)
	}

	reg, err := roots.FromSpec(cfg.Roots)
	if err != nil {
		return fail(statusPath, err)
	}
	bufSize, err := cfg.BufferSize()
	if err != nil {
		return fail(statusPath, err)
	}

	opts := []filemanager.Option{filemanager.WithEngine(copier.New(copier.WithBufferSize(bufSize)))}
	if cfg.Delete.UseTrash {
		opts = append(opts, filemanager.WithTrash(trash.New()))
	}
	files := filemanager.New(reg, opts...)
	sup := jobs.New(jobs.FromManager(files))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	favStore, err := store.Open(cfg.Favorites.Path)
	if err != nil {
		return fail(statusPath, fmt.Errorf("open favorites: %w", err))
	}
	defer favStore.Close()

	if n, err := favStore.Migrate(ctx, cfg.Favorites.LegacyFile); err != nil {
		log.Warn("favorites migration failed", "error", err)
	} else if n > 0 {
		log.Info("imported legacy favorites", "count", n, "file", cfg.Favorites.LegacyFile)
	}

	var favWatcher *watcher.Watcher
	if cfg.Favorites.Watch {
		favWatcher, err = watcher.New(favStore, reg)
		if err != nil {
			log.Warn("favorites watcher disabled", "error", err)
		} else {
			defer favWatcher.Close()
			if err := favWatcher.Sync(); err != nil {
				log.Warn("favorites watcher sync failed", "error", err)
			}
			go favWatcher.Run(ctx, func(f store.Favorite) {
				log.Info("favorite removed with its directory", "root", f.RootID, "path", f.Path)
			})
		}
	}

	api := httpapi.New(httpapi.Deps{
		Files:     files,
		Jobs:      sup,
		Favorites: favorites.New(favStore, reg, favWatcher),
		Auth:      auth.New(cfg.Auth),
		Startup:   func() startup.Status { return st },
	})

	svc := daemon.NewService(files, sup,
		daemon.WithListenAddr(cfg.Server.Listen),
		daemon.WithVersion(version),
		daemon.WithWarnings(st.Warnings),
	)
	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: cfg.Server.Socket,
		Listen:     cfg.Server.Listen,
	}, svc, api.Handler())
	if err != nil {
		return fail(statusPath, fmt.Errorf("create server: %w", err))
	}

	if err := daemon.WritePIDFile(cfg.Server.PIDPath); err != nil {
		_ = srv.Close()
		return fail(statusPath, fmt.Errorf("write PID file: %w", err))
	}
	defer func() {
		if err := daemon.RemovePIDFile(cfg.Server.PIDPath); err != nil {
			log.Warn("failed to remove PID file", "error", err)
		}
		_ = daemon.RemoveStatus(statusPath)
	}()

	if err := daemon.WriteStatusReady(statusPath, srv.HTTPAddr(), cfg.Server.Socket); err != nil {
		log.Warn("failed to write status file", "error", err)
	}
	log.Info("paneod started", "version", version, "listen", srv.HTTPAddr(), "socket", cfg.Server.Socket,
		"roots", len(reg.Roots()))

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("shutting down", "signal", sig.String())
	case <-svc.ShutdownRequested():
		log.Info("shutting down", "reason", "rpc")
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", "error", err)
			return err
		}
	}

	cancel()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), jobDrainTimeout)
	defer drainCancel()
	if err := sup.Shutdown(drainCtx); err != nil {
		log.Warn("copy jobs did not stop in time", "error", err)
	}
	if err := srv.Close(); err != nil {
		log.Warn("error during shutdown", "error", err)
	}
	return nil
}

// fail records err in the status file so a starting client can report it.
func fail(statusPath string, err error) error {
	_ = daemon.WriteStatusError(statusPath, err)
	return err
}
