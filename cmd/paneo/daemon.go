package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/paneo/pkg/client"
	"github.com/jamesainslie/paneo/pkg/paneo/output"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the paneod daemon",
	Long: `Manage the paneod daemon.

The daemon serves the HTTP API and runs copy jobs. The CLI starts it on
demand unless daemon.auto_start is false.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the paneod daemon",
	Long:  `Start the paneod daemon in the background.`,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the paneod daemon",
	Long:  `Stop the paneod daemon gracefully. Running copy jobs are canceled.`,
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the paneod daemon",
	Long:  `Stop and start the paneod daemon.`,
	RunE:  runDaemonRestart,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Show the current status of the paneod daemon.`,
	RunE:  runDaemonStatus,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}

func daemonPaths() (client.DaemonPaths, error) {
	cfg, err := loadedConfig()
	if err != nil {
		return client.DaemonPaths{}, err
	}
	paths := client.PathsFromConfig(cfg)
	paths.Config = cfgFile
	return paths, nil
}

func runDaemonStart(_ *cobra.Command, _ []string) error {
	paths, err := daemonPaths()
	if err != nil {
		return err
	}
	if client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon already running")
		return nil
	}

	printVerbose("starting daemon...")
	if err := client.StartDaemon(paths); err != nil {
		printVerbose("start failed: %v", err)
		return err
	}
	printInfo("Daemon started")
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	paths, err := daemonPaths()
	if err != nil {
		return err
	}
	printVerbose("checking PID file: %s", paths.PID)

	if !client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon is not running")
		return nil
	}

	if err := client.StopDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon stopped")
	return nil
}

func runDaemonRestart(_ *cobra.Command, _ []string) error {
	paths, err := daemonPaths()
	if err != nil {
		return err
	}
	if err := client.RestartDaemon(paths); err != nil {
		return err
	}
	printInfo("Daemon restarted")
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	paths, err := daemonPaths()
	if err != nil {
		return err
	}

	if !client.IsDaemonRunning(paths.PID) {
		printInfo("Daemon status: not running")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemonClient, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		printInfo("Daemon status: running (but not responding)")
		return nil
	}
	defer daemonClient.Close()

	status, err := daemonClient.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get daemon status: %w", err)
	}

	printInfo("Daemon status: %s", output.SuccessStyle.Render("running"))
	printInfo("  PID:     %d", status.PID)
	if status.Version != "" {
		printInfo("  Version: %s", status.Version)
	}
	printInfo("  Uptime:  %s", formatDuration(time.Duration(status.UptimeSeconds)*time.Second))
	printInfo("  Memory:  %s", humanize.IBytes(uint64(status.MemoryBytes)))
	printInfo("  Listen:  %s", status.Listen)
	printInfo("  Socket:  %s", paths.Socket)
	printInfo("  Jobs:    %d running, %d total", status.JobsRunning, status.JobsTotal)

	if len(status.Roots) > 0 {
		printInfo("  Roots:")
		for _, r := range status.Roots {
			printInfo("    - %s (%s) %s", r.Name, r.ID, r.Path)
		}
	}
	if len(status.Warnings) > 0 {
		printInfo("  Warnings:")
		for _, w := range status.Warnings {
			printInfo("    - %s", output.WarningStyle.Render(strings.TrimSpace(w)))
		}
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}
