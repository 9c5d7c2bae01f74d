package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/viva/internal/config"
	"github.com/abhisek/viva/internal/logger"
	"github.com/abhisek/viva/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "viva",
	Short: "Adaptive voice interviews and certification assessments",
	Long: "viva runs adaptive oral interviews: it tracks topic coverage, generates and " +
		"selects questions, scores answers and decides when an interview is complete.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides VIVA_DB env var)")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultPath, "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(interviewCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(taxonomyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config and applies --db.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Store.Path = p
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then store.path from the config, then VIVA_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Store.Path != "" {
		return cfg.Store.Path, store.EnsureDir(cfg.Store.Path)
	}
	return store.DefaultDBPath()
}

// newLogger builds the logger for mode, falling back to a no-op logger.
func newLogger(mode string) *logger.Logger {
	if mode == "nop" {
		return logger.Nop()
	}
	log, err := logger.New(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger unavailable:", err)
		return logger.Nop()
	}
	return log
}
