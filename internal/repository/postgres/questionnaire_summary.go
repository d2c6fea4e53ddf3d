package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
)

type questionnaireSummaryRepository struct {
	BaseRepository
}

func NewQuestionnaireSummaryRepository(db *sqlx.DB) repository.QuestionnaireSummaryRepository {
	return &questionnaireSummaryRepository{NewBaseRepository(db)}
}

// Save replaces any earlier summary for the same appointment.
func (r *questionnaireSummaryRepository) Save(ctx context.Context, s *model.QuestionnaireSummary) error {
	query := `
		INSERT INTO questionnaire_summaries (patient_id, appointment_date, summary, key_points, red_flags, generated_at)
		VALUES (:patient_id, :appointment_date, :summary, :key_points, :red_flags, :generated_at)
		ON CONFLICT (patient_id, appointment_date) DO UPDATE SET
			summary = EXCLUDED.summary,
			key_points = EXCLUDED.key_points,
			red_flags = EXCLUDED.red_flags,
			generated_at = EXCLUDED.generated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("failed to save questionnaire summary: %w", err)
	}
	return nil
}
