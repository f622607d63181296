package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/paneo/pkg/client"
	"github.com/jamesainslie/paneo/pkg/paneo/config"
)

var (
	cfgFile string
	appCfg  *config.Config
	cfgErr  error

	rootCmd = &cobra.Command{
		Use:   "paneo",
		Short: "Browse and copy files through the paneo daemon",
		Long: `paneo talks to paneod, the file manager daemon, over its control socket.

Locations are written root:path, where root is a root id (root-1) or its name.

Examples:
  paneo roots                          # List configured roots
  paneo ls media:photos                # List a directory
  paneo copy media:photos backup:      # Copy with a progress view
  paneo copy -d media:photos backup:   # Start a background copy
  paneo jobs                           # List copy jobs
  paneo daemon status                  # Show daemon status`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/paneo/config.yaml)")
	rootCmd.PersistentFlags().String("socket", "", "daemon control socket (default from config)")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format: pretty, plain, json, yaml, table, markdown, tsv, csv, template")
	rootCmd.PersistentFlags().String("template", "", "Go template used with --output template")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().Bool("no-auto-start", false, "do not start the daemon when it is not running")

	_ = viper.BindPFlag("socket", rootCmd.PersistentFlags().Lookup("socket"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("template", rootCmd.PersistentFlags().Lookup("template"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("no_auto_start", rootCmd.PersistentFlags().Lookup("no-auto-start"))
}

// initConfig loads the config file and environment. A load error is kept
// and reported by the commands that need the config.
func initConfig() {
	viper.SetEnvPrefix("PANEO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	appCfg, cfgErr = config.LoadFile(cfgFile)
	if cfgErr != nil {
		return
	}
	if socket := viper.GetString("socket"); socket != "" {
		appCfg.Server.Socket = socket
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadedConfig returns the config loaded by initConfig.
func loadedConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("load config: %w", cfgErr)
	}
	if appCfg == nil {
		return nil, errors.New("config not loaded")
	}
	return appCfg, nil
}

// connect returns a client for the daemon, starting it first when
// daemon.auto_start is set.
func connect(ctx context.Context) (*client.Client, error) {
	cfg, err := loadedConfig()
	if err != nil {
		return nil, err
	}
	paths := client.PathsFromConfig(cfg)
	paths.Config = cfgFile

	if cfg.Daemon.AutoStart && !viper.GetBool("no_auto_start") {
		printVerbose("ensuring daemon is running (socket %s)", paths.Socket)
		if err := client.EnsureDaemon(paths); err != nil {
			return nil, fmt.Errorf("start daemon: %w", err)
		}
	}

	c, err := client.ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		if errors.Is(err, client.ErrDaemonNotRunning) {
			return nil, fmt.Errorf("%w (start with: paneo daemon start)", err)
		}
		return nil, err
	}
	return c, nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}
