package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/paneo/pkg/paneo/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage paneo configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/paneo/config.yaml (if set)
  2. ~/.config/paneo/config.yaml

Environment variables can override config file settings using the PANEO_ prefix:
  PANEO_SERVER_LISTEN=0.0.0.0:3000
  PANEO_COPY_BUFFER_SIZE=4MiB
  FILE_MANAGER_ROOTS="media=/srv/media;/srv/backup"`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configLines returns the effective settings as key/value pairs. Secrets are masked.
func configLines(cfg *config.Config) [][2]string {
	return [][2]string{
		{"roots", cfg.Roots},
		{"server.listen", cfg.Server.Listen},
		{"server.socket", cfg.Server.Socket},
		{"server.pid_path", cfg.Server.PIDPath},
		{"auth.password", mask(cfg.Auth.Password)},
		{"auth.password_hash", mask(cfg.Auth.PasswordHash)},
		{"auth.secret", mask(cfg.Auth.Secret)},
		{"auth.cookie_secure", fmt.Sprint(cfg.Auth.CookieSecure)},
		{"copy.buffer_size", cfg.Copy.BufferSize},
		{"delete.use_trash", fmt.Sprint(cfg.Delete.UseTrash)},
		{"client.poll_interval", cfg.Client.PollInterval.String()},
		{"favorites.path", cfg.Favorites.Path},
		{"favorites.watch", fmt.Sprint(cfg.Favorites.Watch)},
		{"favorites.legacy_file", cfg.Favorites.LegacyFile},
		{"logging.level", cfg.Logging.Level},
		{"logging.path", cfg.Logging.Path},
		{"logging.console_level", cfg.Logging.ConsoleLevel},
		{"daemon.auto_start", fmt.Sprint(cfg.Daemon.AutoStart)},
		{"daemon.binary_path", cfg.Daemon.BinaryPath},
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// runConfigShow displays the current configuration.
func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadedConfig()
	if err != nil {
		return err
	}

	configPath := cfgFile
	if configPath == "" {
		if configPath, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file: %s\n\n", configPath)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	for _, kv := range configLines(cfg) {
		fmt.Printf("%-22s %s\n", kv[0]+":", kv[1])
	}

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "PANEO_") || strings.HasPrefix(env, config.RootsEnv+"=") {
			fmt.Println(env)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(_ *cobra.Command, _ []string) error {
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath) //nolint:gosec // editor comes from the user's environment
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'paneo config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
