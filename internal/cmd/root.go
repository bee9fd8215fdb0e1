package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"costsync/pkg/config"
	"costsync/pkg/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "costsync",
	Short: "Synchronize GitHub Enterprise cost centers",
	Long: `Costsync keeps GitHub Enterprise cost centers in step with your
organization. It can assign users from GitHub team membership, split
Copilot seat holders with a static exception list, or map repositories
to cost centers via custom properties.

By default every run only plans; pass --apply to make changes.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.costsync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(initCmd)
}

// loadConfig loads the configuration honoring the --config flag
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the default slog logger based on config and
// the --verbose flag
func setupLogging(cfg *config.Config) *slog.Logger {
	level := logging.ParseLogLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewLoggerWithFormat(level, os.Stderr, logging.ParseFormat(cfg.Logging.Format))
	slog.SetDefault(logger)
	return logger
}
