package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
)

type alertRepository struct {
	BaseRepository
}

func NewAlertRepository(db *sqlx.DB) repository.AlertRepository {
	return &alertRepository{NewBaseRepository(db)}
}

func (r *alertRepository) SaveWithEvents(ctx context.Context, alerts []*model.WearableAlert, events []*model.OutboxEvent) error {
	if len(alerts) == 0 && len(events) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, a := range alerts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO wearable_alerts (id, patient_id, priority, metric, message, significance, snapshot, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				a.ID, a.PatientID, a.Priority, a.Metric, a.Message, a.Significance, a.Snapshot, a.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert alert: %w", err)
			}
		}
		for _, e := range events {
			if err := insertOutboxEvent(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *alertRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.WearableAlert, error) {
	query := `
		SELECT id, patient_id, priority, metric, message, significance, snapshot, created_at
		FROM wearable_alerts
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT 100
	`
	var alerts []*model.WearableAlert
	if err := r.db.SelectContext(ctx, &alerts, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}
