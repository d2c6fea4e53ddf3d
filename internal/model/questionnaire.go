package model

import (
	"fmt"
	"strings"
	"time"
)

// QuestionnaireStatus reports whether a patient has a pre-visit questionnaire.
type QuestionnaireStatus struct {
	PatientID     string  `json:"patient_id"`
	Exists        bool    `json:"exists"`
	Completed     bool    `json:"completed"`
	DateCompleted *string `json:"date_completed"`
}

// QuestionnaireStatusRequest is the body of the bulk status endpoint.
type QuestionnaireStatusRequest struct {
	PatientIDs interface{} `json:"patient_ids"`
}

// Questionnaire is a pre-visit questionnaire document as the patient filled it in.
type Questionnaire map[string]interface{}

// Text returns the trimmed string form of a top-level field.
func (q Questionnaire) Text(key string) string {
	v, ok := q[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// QuestionnaireSummary is a stored summary of a pre-visit questionnaire.
type QuestionnaireSummary struct {
	PatientID       string      `db:"patient_id" json:"patient_id"`
	AppointmentDate string      `db:"appointment_date" json:"appointment_date"`
	Summary         string      `db:"summary" json:"summary"`
	KeyPoints       StringArray `db:"key_points" json:"key_points"`
	RedFlags        StringArray `db:"red_flags" json:"red_flags"`
	GeneratedAt     time.Time   `db:"generated_at" json:"generated_at"`
}

// Medication is one current medication line.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

// Allergies groups allergies by kind.
type Allergies struct {
	Drug          []string `json:"drug"`
	Food          []string `json:"food"`
	Environmental []string `json:"environmental"`
}

// PrevisitSummary is the structured pre-visit brief for a clinician.
type PrevisitSummary struct {
	PatientID          string       `json:"patient_id"`
	PatientName        string       `json:"patient_name"`
	ClinicalSummary    string       `json:"clinical_summary"`
	CurrentMedications []Medication `json:"current_medications"`
	Allergies          Allergies    `json:"allergies"`
	KeySymptoms        []string     `json:"key_symptoms"`
	PatientConcerns    []string     `json:"patient_concerns"`
	RecentNoteSummary  string       `json:"recent_note_summary"`
}

// QuestionnaireStatuses is the bulk status response.
type QuestionnaireStatuses struct {
	Statuses []QuestionnaireStatus `json:"statuses"`
}
