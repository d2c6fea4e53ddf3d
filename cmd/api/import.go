package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/patientiq/dashboard-api/internal/app"
	"github.com/patientiq/dashboard-api/internal/model"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import-wearables",
	Short: "Load device readings from a JSON array file",
	Example: `  patientiq import-wearables --file readings.json
  where readings.json is [{"patient_id":"7","timestamp":"2025-03-01T08:00:00Z","heart_rate":72,...}]`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(importFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", importFile, err)
		}
		var readings []*model.WearableReading
		if err := json.Unmarshal(raw, &readings); err != nil {
			return fmt.Errorf("failed to decode %s: %w", importFile, err)
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Services.Wearables.Import(cmd.Context(), readings)
		if err != nil {
			return err
		}
		log.Info().Int("readings", n).Str("file", importFile).Msg("import finished")
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to the readings file")
	_ = importCmd.MarkFlagRequired("file")
}
