package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/patientiq/dashboard-api/internal/app"
)

var backfillBatch int

var backfillCmd = &cobra.Command{
	Use:   "backfill-vectors",
	Short: "Embed and index every paper and doctor note that has no vector yet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		papers, notes, err := a.BackfillVectors(cmd.Context(), backfillBatch)
		log.Info().Int("papers", papers).Int("notes", notes).Msg("vector backfill finished")
		return err
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillBatch, "batch", 100, "rows fetched per round trip")
}
