package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/monoize-go/monoize/internal/config"
)

const (
	AppName    = "monoize"
	OldAppName = "claude-code-open" // for backward compatibility with the teacher's config directory
	Version    = "0.1.0"
)

var (
	logger  *slog.Logger
	homeDir string
	baseDir string
	cfgMgr  *config.Manager
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger = slog.New(handler)

	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		logger.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}

	baseDir = getConfigDirectory(homeDir)
	cfgMgr = config.NewManager(baseDir)
}

var rootCmd = &cobra.Command{
	Use:     "monoize",
	Short:   "Monoize - multi-tenant LLM proxy",
	Long:    `A multi-tenant reverse proxy that normalizes OpenAI, Anthropic, Gemini, and Grok chat/completion requests into a single routing and transform pipeline.`,
	Version: Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// getConfigDirectory prefers ~/.monoize, falling back to the teacher's
// ~/.claude-code-open if that's the only one already populated.
func getConfigDirectory(homeDir string) string {
	newDir := filepath.Join(homeDir, "."+AppName)
	oldDir := filepath.Join(homeDir, "."+OldAppName)

	oldExists := directoryHasConfig(oldDir)
	newExists := directoryHasConfig(newDir)

	if newExists {
		return newDir
	}

	if oldExists {
		color.Yellow("Using existing configuration directory: %s", oldDir)
		color.Cyan("Consider migrating to the new directory: %s", newDir)
		color.Cyan("You can do this by running: mv %s %s", oldDir, newDir)
		return oldDir
	}

	return newDir
}

func directoryHasConfig(dir string) bool {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false
	}

	yamlConfig := filepath.Join(dir, config.DefaultYAMLFilename)
	jsonConfig := filepath.Join(dir, config.DefaultConfigFilename)

	if _, err := os.Stat(yamlConfig); err == nil {
		return true
	}
	if _, err := os.Stat(jsonConfig); err == nil {
		return true
	}

	return false
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolP("log-file", "l", false, "enable file logging")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging(verbose, logFile bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	if logFile {
		// TODO: implement file logging
		color.Yellow("File logging not yet implemented, using stdout")
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	logger = slog.New(handler)
}

func ensureConfigExists() error {
	if !cfgMgr.Exists() {
		if apiKey := os.Getenv(config.EnvAPIKey); apiKey != "" {
			color.Green("No configuration file found, but %s is set - using minimal configuration", config.EnvAPIKey)
			return nil
		}

		color.Yellow("Configuration not found, starting setup...")
		return promptForConfig()
	}

	return nil
}

func promptForConfig() error {
	fmt.Println("Please run 'monoize config generate' to create a starter configuration")
	return errors.New("configuration required")
}
