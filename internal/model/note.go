package model

import "time"

// DoctorNote is a clinician's visit note.
type DoctorNote struct {
	ID          string    `db:"id" json:"id"`
	PatientID   string    `db:"patient_id" json:"patient_id" validate:"required"`
	PatientName string    `db:"patient_name" json:"patient_name" validate:"required"`
	DoctorID    string    `db:"doctor_id" json:"doctor_id" validate:"required"`
	DoctorName  string    `db:"doctor_name" json:"doctor_name" validate:"required"`
	VisitDate   string    `db:"visit_date" json:"visit_date" validate:"required"`
	VisitNotes  string    `db:"visit_notes" json:"visit_notes" validate:"required"`
	Vectorized  bool      `db:"vectorized" json:"vectorized"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SaveNoteRequest is the body of the save-note endpoint. Field order is the
// order missing fields are reported in.
type SaveNoteRequest struct {
	VisitDate   string `json:"visit_date" validate:"required"`
	DoctorName  string `json:"doctor_name" validate:"required"`
	DoctorID    string `json:"doctor_id" validate:"required"`
	VisitNotes  string `json:"visit_notes" validate:"required"`
	PatientName string `json:"patient_name" validate:"required"`
	PatientID   string `json:"patient_id" validate:"required"`
}

// NoteSaved acknowledges a saved or deleted doctor note.
type NoteSaved struct {
	Message string `json:"message"`
	NoteID  string `json:"note_id"`
}

// NoteEntry is the list shape shared by doctor and patient notes.
type NoteEntry struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Content string `json:"content"`
}

// NoteList wraps a patient's notes.
type NoteList struct {
	PatientID string      `json:"patient_id"`
	Notes     []NoteEntry `json:"notes"`
	Count     int         `json:"count"`
}

// NoteHit is a doctor note returned by a search, with its distance when
// it came from the vector index.
type NoteHit struct {
	ID          string   `json:"id"`
	PatientID   string   `json:"patient_id"`
	PatientName string   `json:"patient_name"`
	VisitDate   string   `json:"visit_date"`
	VisitNotes  string   `json:"visit_notes"`
	Distance    *float64 `json:"distance,omitempty"`
}

// NotesSearchRequest is the body of the doctor-notes search endpoint.
type NotesSearchRequest struct {
	Question    string `json:"question"`
	DoctorName  string `json:"doctor_name"`
	PatientName string `json:"patient_name"`
}

// NotesSearchResult is the response of the doctor-notes search endpoint.
type NotesSearchResult struct {
	PatientID            string    `json:"patient_id"`
	PatientName          string    `json:"patient_name"`
	Question             string    `json:"question"`
	Notes                []NoteHit `json:"notes"`
	Answer               string    `json:"answer"`
	ReferencedVisitNotes []NoteHit `json:"referenced_visit_notes"`
}

// DoctorQuestion records a question asked against a patient's notes.
type DoctorQuestion struct {
	ID            string    `db:"id" json:"id"`
	QuestionAsked string    `db:"question_asked" json:"question_asked"`
	PatientName   string    `db:"patient_name" json:"patient_name"`
	DoctorName    string    `db:"doctor_name" json:"doctor_name"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
}

// DoctorAnswer records the answer given to a DoctorQuestion.
type DoctorAnswer struct {
	ID                   string      `db:"id" json:"id"`
	QuestionID           string      `db:"question_id" json:"question_id"`
	QuestionAsked        string      `db:"question_asked" json:"question_asked"`
	AnswerProvided       string      `db:"answer_provided" json:"answer_provided"`
	PatientName          string      `db:"patient_name" json:"patient_name"`
	DoctorName           string      `db:"doctor_name" json:"doctor_name"`
	ReferencedVisitNotes StringArray `db:"referenced_visit_notes" json:"referenced_visit_notes"`
	Timestamp            time.Time   `db:"timestamp" json:"timestamp"`
}

// NotesSummary is the response of the doctor-notes summary endpoint.
type NotesSummary struct {
	PatientID string `json:"patient_id"`
	NoteCount int    `json:"note_count"`
	Summary   string `json:"summary"`
}
