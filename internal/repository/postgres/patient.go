package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

const patientColumns = `patient_id, patient_name, age, gender, medical_conditions, admission_date, raw, updated_at`

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY patient_id`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE patient_id = $1`
	var patient model.Patient
	if err := r.getOne(ctx, &patient, query, id); err != nil {
		if err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Upsert(ctx context.Context, p *model.Patient) error {
	query := `
		INSERT INTO patients (
			patient_id, patient_name, age, gender, medical_conditions, admission_date, raw, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (patient_id) DO UPDATE SET
			patient_name = EXCLUDED.patient_name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			medical_conditions = EXCLUDED.medical_conditions,
			admission_date = EXCLUDED.admission_date,
			raw = EXCLUDED.raw,
			updated_at = EXCLUDED.updated_at
	`
	p.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		p.PatientID,
		p.PatientName,
		p.Age,
		p.Gender,
		p.MedicalConditions,
		p.AdmissionDate,
		p.Raw,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert patient: %w", err)
	}
	return nil
}

func (r *patientRepository) FindSimilar(ctx context.Context, excludeID string, age, ageRange int, gender, condition string, limit int) ([]*model.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE patient_id <> $1
		  AND ABS(age - $2) <= $3
		  AND ($4 = '' OR LOWER(gender) = LOWER($4))
		  AND ($5 = '' OR LOWER(medical_conditions) = LOWER($5))
		ORDER BY ABS(age - $2) ASC, patient_id
		LIMIT $6
	`
	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, excludeID, age, ageRange, gender, condition, limit); err != nil {
		return nil, fmt.Errorf("failed to find similar patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) LatestSentiment(ctx context.Context, patientID string) (*model.SentimentAnalysis, error) {
	query := `
		SELECT id, patient_id, rating, visit_date
		FROM sentiment_analyses
		WHERE patient_id = $1
		ORDER BY visit_date DESC
		LIMIT 1
	`
	var s model.SentimentAnalysis
	if err := r.getOne(ctx, &s, query, patientID); err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sentiment: %w", err)
	}
	return &s, nil
}

func (r *patientRepository) LatestResearchSummary(ctx context.Context, patientID string) (*model.ResearchSummary, error) {
	query := `
		SELECT id, patient_id, condition, topic, summaries, sources, generated_at
		FROM research_summaries
		WHERE patient_id = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`
	var s model.ResearchSummary
	if err := r.getOne(ctx, &s, query, patientID); err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get research summary: %w", err)
	}
	return &s, nil
}
