package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "patientiq",
	Short:        "PatientIQ healthcare dashboard backend",
	Long:         `Serves the dashboard API and runs its maintenance tasks: schema migration, vector backfill and wearable imports.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, backfillCmd, importCmd)
}

// loadConfig reads configuration and sets up the global logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Console)
	return cfg, nil
}
