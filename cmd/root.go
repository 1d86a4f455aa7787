package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"halmon/internal/config"
	"halmon/internal/logger"
)

var (
	cfgFile  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "halmon",
	Short: "Host resource monitor with threshold alarms",
	Long: `halmon samples CPU, memory and disk usage, keeps a short history and
warns when a usage alarm threshold is reached.

Examples:
  halmon                        interactive monitor (same as "halmon tui")
  halmon serve                  headless monitoring with the HTTP API
  halmon status                 one reading, checked against every alarm
  halmon alarms add cpu 80      alert when CPU usage reaches 80%`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

// Execute runs the command tree
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/halmon.yaml or ./halmon.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newTUICmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newAlarmsCmd())
	rootCmd.AddCommand(newTokenCmd())
}

func loadConfig(cmd *cobra.Command) error {
	loader := config.NewConfigLoader(cfgFile, "HALMON")
	if err := loader.Viper().BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
		return err
	}
	c, err := loader.LoadConfig()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// initLogger installs the diagnostic logger. toFile forces the rotated file
// so log lines never draw over a full-screen interface.
func initLogger(toFile bool) error {
	lc := cfg.Log
	if toFile {
		lc.Output = "file"
	}
	if _, err := logger.InitLogger(&lc); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	return nil
}
