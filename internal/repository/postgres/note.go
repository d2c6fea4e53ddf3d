package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
)

type noteRepository struct {
	BaseRepository
}

func NewNoteRepository(db *sqlx.DB) repository.NoteRepository {
	return &noteRepository{NewBaseRepository(db)}
}

const doctorNoteColumns = `id, patient_id, patient_name, doctor_id, doctor_name, visit_date, visit_notes, vectorized, created_at`

func (r *noteRepository) ListDoctorNotes(ctx context.Context, patientID string) ([]*model.DoctorNote, error) {
	query := `
		SELECT ` + doctorNoteColumns + `
		FROM doctor_notes
		WHERE patient_id = $1
		  AND TRIM(visit_date) <> ''
		  AND TRIM(visit_notes) <> ''
		ORDER BY visit_date DESC
	`
	var notes []*model.DoctorNote
	if err := r.db.SelectContext(ctx, &notes, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list doctor notes: %w", err)
	}
	return notes, nil
}

func (r *noteRepository) LatestDoctorNote(ctx context.Context, patientID string) (*model.DoctorNote, error) {
	query := `
		SELECT ` + doctorNoteColumns + `
		FROM doctor_notes
		WHERE patient_id = $1 AND TRIM(visit_notes) <> ''
		ORDER BY visit_date DESC
		LIMIT 1
	`
	var note model.DoctorNote
	if err := r.getOne(ctx, &note, query, patientID); err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest doctor note: %w", err)
	}
	return &note, nil
}

func (r *noteRepository) SaveDoctorNote(ctx context.Context, note *model.DoctorNote) error {
	query := `
		INSERT INTO doctor_notes (
			id, patient_id, patient_name, doctor_id, doctor_name, visit_date, visit_notes, vectorized, created_at
		) VALUES (
			:id, :patient_id, :patient_name, :doctor_id, :doctor_name, :visit_date, :visit_notes, :vectorized, :created_at
		)
		ON CONFLICT (id) DO UPDATE SET
			visit_notes = EXCLUDED.visit_notes,
			visit_date = EXCLUDED.visit_date,
			vectorized = EXCLUDED.vectorized
	`
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("failed to save doctor note: %w", err)
	}
	return nil
}

func (r *noteRepository) DeleteDoctorNote(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM doctor_notes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete doctor note: %w", err)
	}
	return affected(res)
}

func (r *noteRepository) MarkNoteVectorized(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE doctor_notes SET vectorized = TRUE WHERE id = $1`, id)
	return err
}

// ClaimUnvectorizedNotes works like ClaimUnvectorizedPapers for doctor
// notes with text.
func (r *noteRepository) ClaimUnvectorizedNotes(ctx context.Context, limit int) ([]*model.DoctorNote, error) {
	query := `
		UPDATE doctor_notes
		SET vector_attempted_at = NOW()
		WHERE id IN (
			SELECT id
			FROM doctor_notes
			WHERE NOT vectorized AND TRIM(visit_notes) <> ''
			  AND (vector_attempted_at IS NULL OR vector_attempted_at < NOW() - $1 * INTERVAL '1 second')
			ORDER BY vector_attempted_at NULLS FIRST, created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + doctorNoteColumns
	var notes []*model.DoctorNote
	if err := r.db.SelectContext(ctx, &notes, query, int(vectorRetryAfter.Seconds()), limit); err != nil {
		return nil, fmt.Errorf("failed to claim unvectorized notes: %w", err)
	}
	return notes, nil
}

// KeywordSearchNotes matches any note of the patient whose text contains
// query; an empty query returns the most recent notes.
func (r *noteRepository) KeywordSearchNotes(ctx context.Context, patientID, query string, limit int) ([]*model.DoctorNote, error) {
	q := `
		SELECT ` + doctorNoteColumns + `
		FROM doctor_notes
		WHERE patient_id = $1
		  AND TRIM(visit_notes) <> ''
		  AND ($2 = '%%' OR LOWER(visit_notes) LIKE $2)
		ORDER BY visit_date DESC
		LIMIT $3
	`
	var notes []*model.DoctorNote
	if err := r.db.SelectContext(ctx, &notes, q, patientID, likePattern(query), limit); err != nil {
		return nil, fmt.Errorf("failed to search doctor notes: %w", err)
	}
	return notes, nil
}

func (r *noteRepository) ListPatientNotes(ctx context.Context, patientID string) ([]*model.PatientNote, error) {
	query := `
		SELECT id, patient_id, visit_date, visit_notes, created_at
		FROM patient_notes
		WHERE patient_id = $1
		  AND TRIM(visit_date) <> ''
		  AND TRIM(visit_notes) <> ''
		ORDER BY visit_date DESC
	`
	var notes []*model.PatientNote
	if err := r.db.SelectContext(ctx, &notes, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient notes: %w", err)
	}
	return notes, nil
}

func (r *noteRepository) LatestPatientNote(ctx context.Context, patientID string) (*model.PatientNote, error) {
	query := `
		SELECT id, patient_id, visit_date, visit_notes, created_at
		FROM patient_notes
		WHERE patient_id = $1
		ORDER BY visit_date DESC
		LIMIT 1
	`
	var note model.PatientNote
	if err := r.getOne(ctx, &note, query, patientID); err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest patient note: %w", err)
	}
	return &note, nil
}

func (r *noteRepository) SaveDoctorQuestion(ctx context.Context, q *model.DoctorQuestion) error {
	query := `
		INSERT INTO doctor_questions (id, question_asked, patient_name, doctor_name, timestamp)
		VALUES (:id, :question_asked, :patient_name, :doctor_name, :timestamp)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("failed to save doctor question: %w", err)
	}
	return nil
}

func (r *noteRepository) SaveDoctorAnswer(ctx context.Context, a *model.DoctorAnswer) error {
	query := `
		INSERT INTO doctor_answers (
			id, question_id, question_asked, answer_provided, patient_name, doctor_name,
			referenced_visit_notes, timestamp
		) VALUES (
			:id, :question_id, :question_asked, :answer_provided, :patient_name, :doctor_name,
			:referenced_visit_notes, :timestamp
		)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("failed to save doctor answer: %w", err)
	}
	return nil
}
