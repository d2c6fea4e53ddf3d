package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
)

type wearableRepository struct {
	BaseRepository
}

func NewWearableRepository(db *sqlx.DB) repository.WearableRepository {
	return &wearableRepository{NewBaseRepository(db)}
}

func (r *wearableRepository) Recent(ctx context.Context, patientID string, limit int) ([]*model.WearableReading, error) {
	query := `
		SELECT id, patient_id, timestamp, heart_rate, step_count, blood_oxygen_level,
		       stress_level, exercise_duration
		FROM wearable_readings
		WHERE patient_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	var readings []*model.WearableReading
	if err := r.db.SelectContext(ctx, &readings, query, patientID, limit); err != nil {
		return nil, fmt.Errorf("failed to get wearable readings: %w", err)
	}
	return readings, nil
}

func (r *wearableRepository) Insert(ctx context.Context, readings []*model.WearableReading) error {
	if len(readings) == 0 {
		return nil
	}

	query := `
		INSERT INTO wearable_readings (
			patient_id, timestamp, heart_rate, step_count, blood_oxygen_level,
			stress_level, exercise_duration
		) VALUES (
			:patient_id, :timestamp, :heart_rate, :step_count, :blood_oxygen_level,
			:stress_level, :exercise_duration
		)
		ON CONFLICT (patient_id, timestamp) DO UPDATE SET
			heart_rate = EXCLUDED.heart_rate,
			step_count = EXCLUDED.step_count,
			blood_oxygen_level = EXCLUDED.blood_oxygen_level,
			stress_level = EXCLUDED.stress_level,
			exercise_duration = EXCLUDED.exercise_duration
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, reading := range readings {
			if _, err := tx.NamedExecContext(ctx, query, reading); err != nil {
				return fmt.Errorf("failed to insert wearable reading: %w", err)
			}
		}
		return nil
	})
}
