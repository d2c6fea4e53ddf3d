package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/patientiq/dashboard-api/internal/model"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when an insert collides with a unique key.
var ErrConflict = errors.New("record already exists")

// All repository interfaces in one file
type (
	PatientRepository interface {
		List(ctx context.Context) ([]*model.Patient, error)
		Get(ctx context.Context, id string) (*model.Patient, error)
		Upsert(ctx context.Context, patient *model.Patient) error
		// FindSimilar returns patients within ageRange years of age, closest
		// first. Gender and condition are matched case-insensitively when set.
		FindSimilar(ctx context.Context, excludeID string, age, ageRange int, gender, condition string, limit int) ([]*model.Patient, error)
		LatestSentiment(ctx context.Context, patientID string) (*model.SentimentAnalysis, error)
		LatestResearchSummary(ctx context.Context, patientID string) (*model.ResearchSummary, error)
	}

	WearableRepository interface {
		// Recent returns up to limit readings, newest first.
		Recent(ctx context.Context, patientID string, limit int) ([]*model.WearableReading, error)
		Insert(ctx context.Context, readings []*model.WearableReading) error
	}

	NoteRepository interface {
		ListDoctorNotes(ctx context.Context, patientID string) ([]*model.DoctorNote, error)
		LatestDoctorNote(ctx context.Context, patientID string) (*model.DoctorNote, error)
		SaveDoctorNote(ctx context.Context, note *model.DoctorNote) error
		DeleteDoctorNote(ctx context.Context, id string) (bool, error)
		MarkNoteVectorized(ctx context.Context, id string) error
		ClaimUnvectorizedNotes(ctx context.Context, limit int) ([]*model.DoctorNote, error)
		KeywordSearchNotes(ctx context.Context, patientID, query string, limit int) ([]*model.DoctorNote, error)
		ListPatientNotes(ctx context.Context, patientID string) ([]*model.PatientNote, error)
		LatestPatientNote(ctx context.Context, patientID string) (*model.PatientNote, error)
		SaveDoctorQuestion(ctx context.Context, q *model.DoctorQuestion) error
		SaveDoctorAnswer(ctx context.Context, a *model.DoctorAnswer) error
	}

	ResearchRepository interface {
		// SearchPapers matches pattern against title and article text.
		SearchPapers(ctx context.Context, pattern string, limit int) ([]*model.ResearchPaper, error)
		ResolvePMCLink(ctx context.Context, citation, title string) (string, error)
		PaperExists(ctx context.Context, citation string) (bool, error)
		SavePaper(ctx context.Context, paper *model.ResearchPaper) error
		MarkPaperVectorized(ctx context.Context, id string) error
		ClaimUnvectorizedPapers(ctx context.Context, limit int) ([]*model.ResearchPaper, error)
		SaveQuestion(ctx context.Context, q *model.ResearchQuestion) error
		SaveAnswer(ctx context.Context, a *model.ResearchAnswer) error
		UpdateAnswerRating(ctx context.Context, id string, rating int) (bool, error)
	}

	MessageRepository interface {
		ListPrivate(ctx context.Context, doctorID string, limit int) ([]*model.Message, error)
		ListPublic(ctx context.Context, limit int) ([]*model.Message, error)
		Save(ctx context.Context, msg *model.Message) error
		MarkRead(ctx context.Context, id string, messageType model.MessageType) (bool, error)
		ListStaff(ctx context.Context) ([]*model.StaffMember, error)
		SaveRoute(ctx context.Context, route *model.MessageRoute) error
	}

	AppointmentRepository interface {
		// ByDoctor filters on the date range only when both bounds are set.
		ByDoctor(ctx context.Context, doctorID, startDate, endDate string) ([]*model.Appointment, error)
		ByPatient(ctx context.Context, patientID string) ([]*model.Appointment, error)
		UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (bool, error)
	}

	AlertRepository interface {
		// SaveWithEvents stores alerts and their outbox events in one transaction.
		SaveWithEvents(ctx context.Context, alerts []*model.WearableAlert, events []*model.OutboxEvent) error
		ListByPatient(ctx context.Context, patientID string) ([]*model.WearableAlert, error)
	}

	QuestionnaireSummaryRepository interface {
		Save(ctx context.Context, summary *model.QuestionnaireSummary) error
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
	}
)
