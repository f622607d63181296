package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/paneo/pkg/client"
)

// Build-time variables set by go build -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// versionTimeout bounds the daemon Status call.
const versionTimeout = 2 * time.Second

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print CLI and daemon versions",
	Long: `Display the version, commit and build date of paneo, and the version of
the running paneod. The daemon is never started by this command.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) {
	for _, line := range versionLines(daemonVersion()) {
		fmt.Println(line)
	}
}

// daemonVersion asks a running daemon for its version. It returns "" when no
// daemon is running.
func daemonVersion() (string, error) {
	paths, err := daemonPaths()
	if err != nil {
		return "", err
	}
	if !client.IsDaemonRunning(paths.PID) {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()

	c, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return "", err
	}
	defer c.Close()

	st, err := c.Status(ctx)
	if err != nil {
		return "", err
	}
	if st.Version == "" {
		return "unknown", nil
	}
	return st.Version, nil
}

func versionLines(daemon string, daemonErr error) []string {
	switch {
	case daemonErr != nil:
		daemon = "unavailable (" + daemonErr.Error() + ")"
	case daemon == "":
		daemon = "not running"
	case daemon != version:
		daemon += " (differs from CLI, run: paneo daemon restart)"
	}
	return []string{
		"paneo " + version,
		"  commit:  " + commit,
		"  built:   " + date,
		"  go:      " + runtime.Version(),
		"  os/arch: " + runtime.GOOS + "/" + runtime.GOARCH,
		"  daemon:  " + daemon,
	}
}
