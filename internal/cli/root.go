// Package cli implements the leadline command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sevaro/leadline/internal/config"
	"github.com/sevaro/leadline/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// cfg is the loaded configuration, available to all commands after
	// PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "leadline",
	Short: "Lead follow-up reminder and escalation engine",
	Long: `Leadline watches a CRM lead store for due follow-ups and imminent
meetings, surfaces one notification per class at a time, and escalates
follow-ups that go unanswered past their grace window.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loader := config.NewLoader()
		if cfgFile != "" {
			loader.SetConfigFile(cfgFile)
		}

		loaded, err := loader.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		if logFormat != "" {
			loaded.Logging.Format = logFormat
		}

		logCfg := logging.Config{
			Level:        loaded.Logging.Level,
			Format:       loaded.Logging.Format,
			EnableCaller: loaded.Logging.EnableCaller,
		}
		if loaded.Logging.File != "" {
			f, err := os.OpenFile(loaded.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			logCfg.Output = f
		}
		logging.Init(logCfg)

		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/leadline/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (json, console)")
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
