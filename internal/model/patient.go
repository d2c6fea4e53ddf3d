package model

import "time"

// Patient is the stored patient document.
type Patient struct {
	PatientID         string    `db:"patient_id" json:"patient_id"`
	PatientName       string    `db:"patient_name" json:"patient_name"`
	Age               int       `db:"age" json:"age"`
	Gender            string    `db:"gender" json:"gender"`
	MedicalConditions string    `db:"medical_conditions" json:"medical_conditions"`
	AdmissionDate     string    `db:"admission_date" json:"admission_date"`
	Raw               JSONMap   `db:"raw" json:"-"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// Document returns the raw document merged with the structured columns.
func (p *Patient) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(p.Raw)+6)
	for k, v := range p.Raw {
		doc[k] = v
	}
	doc["patient_id"] = p.PatientID
	doc["patient_name"] = p.PatientName
	doc["age"] = p.Age
	doc["gender"] = p.Gender
	doc["medical_conditions"] = p.MedicalConditions
	doc["admission_date"] = p.AdmissionDate
	return doc
}

// WearableSeries is the chronological series embedded in the patient view.
type WearableSeries struct {
	Timestamps []string `json:"timestamps"`
	HeartRate  []int    `json:"heart_rate"`
	StepCount  []int    `json:"step_count"`
}

// PatientView is the dashboard's patient shape.
type PatientView struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Age             int            `json:"age"`
	Gender          string         `json:"gender"`
	Condition       string         `json:"condition"`
	Avatar          string         `json:"avatar"`
	LastVisit       string         `json:"last_visit"`
	NextAppointment string         `json:"next_appointment"`
	WearableData    WearableSeries `json:"wearable_data"`
	Sentiment       string         `json:"sentiment"`
	SentimentRating string         `json:"sentiment_rating"`
	PrivateNotes    string         `json:"private_notes"`
	ResearchTopic   string         `json:"research_topic"`
	ResearchContent []string       `json:"research_content"`
}

// UpsertPatientRequest accepts the dashboard's patient shape.
type UpsertPatientRequest struct {
	ID              string          `json:"id" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	Age             int             `json:"age" binding:"gte=0"`
	Gender          string          `json:"gender"`
	Condition       string          `json:"condition"`
	Avatar          string          `json:"avatar"`
	LastVisit       string          `json:"last_visit"`
	NextAppointment string          `json:"next_appointment"`
	WearableData    *WearableSeries `json:"wearable_data"`
	Sentiment       string          `json:"sentiment"`
	PrivateNotes    string          `json:"private_notes"`
	ResearchTopic   string          `json:"research_topic"`
	ResearchContent []string        `json:"research_content"`
}

// PatientNote is a note written by or about the patient.
type PatientNote struct {
	ID         string    `db:"id" json:"id"`
	PatientID  string    `db:"patient_id" json:"patient_id"`
	VisitDate  string    `db:"visit_date" json:"visit_date"`
	VisitNotes string    `db:"visit_notes" json:"visit_notes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SentimentAnalysis is the latest rating produced for a patient's visit notes.
type SentimentAnalysis struct {
	ID        string `db:"id" json:"id"`
	PatientID string `db:"patient_id" json:"patient_id"`
	Rating    string `db:"rating" json:"rating"`
	VisitDate string `db:"visit_date" json:"visit_date"`
}

// ResearchSummary is a stored per-patient research digest.
type ResearchSummary struct {
	ID          string      `db:"id" json:"id"`
	PatientID   string      `db:"patient_id" json:"patient_id"`
	Condition   string      `db:"condition" json:"condition"`
	Topic       string      `db:"topic" json:"topic"`
	Summaries   StringArray `db:"summaries" json:"summaries"`
	Sources     StringArray `db:"sources" json:"sources"`
	GeneratedAt time.Time   `db:"generated_at" json:"generated_at"`
}
