// Package mocks holds testify mocks of the repository, model and index
// interfaces the services depend on.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/patientiq/dashboard-api/internal/model"
)

type PatientRepository struct{ mock.Mock }

func (m *PatientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]*model.Patient)
	return v, args.Error(1)
}

func (m *PatientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.Patient)
	return v, args.Error(1)
}

func (m *PatientRepository) Upsert(ctx context.Context, patient *model.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *PatientRepository) FindSimilar(ctx context.Context, excludeID string, age, ageRange int, gender, condition string, limit int) ([]*model.Patient, error) {
	args := m.Called(ctx, excludeID, age, ageRange, gender, condition, limit)
	v, _ := args.Get(0).([]*model.Patient)
	return v, args.Error(1)
}

func (m *PatientRepository) LatestSentiment(ctx context.Context, patientID string) (*model.SentimentAnalysis, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).(*model.SentimentAnalysis)
	return v, args.Error(1)
}

func (m *PatientRepository) LatestResearchSummary(ctx context.Context, patientID string) (*model.ResearchSummary, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).(*model.ResearchSummary)
	return v, args.Error(1)
}

type WearableRepository struct{ mock.Mock }

func (m *WearableRepository) Recent(ctx context.Context, patientID string, limit int) ([]*model.WearableReading, error) {
	args := m.Called(ctx, patientID, limit)
	v, _ := args.Get(0).([]*model.WearableReading)
	return v, args.Error(1)
}

func (m *WearableRepository) Insert(ctx context.Context, readings []*model.WearableReading) error {
	return m.Called(ctx, readings).Error(0)
}

type NoteRepository struct{ mock.Mock }

func (m *NoteRepository) ListDoctorNotes(ctx context.Context, patientID string) ([]*model.DoctorNote, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).([]*model.DoctorNote)
	return v, args.Error(1)
}

func (m *NoteRepository) LatestDoctorNote(ctx context.Context, patientID string) (*model.DoctorNote, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).(*model.DoctorNote)
	return v, args.Error(1)
}

func (m *NoteRepository) SaveDoctorNote(ctx context.Context, note *model.DoctorNote) error {
	return m.Called(ctx, note).Error(0)
}

func (m *NoteRepository) DeleteDoctorNote(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *NoteRepository) MarkNoteVectorized(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *NoteRepository) ClaimUnvectorizedNotes(ctx context.Context, limit int) ([]*model.DoctorNote, error) {
	args := m.Called(ctx, limit)
	v, _ := args.Get(0).([]*model.DoctorNote)
	return v, args.Error(1)
}

func (m *NoteRepository) KeywordSearchNotes(ctx context.Context, patientID, query string, limit int) ([]*model.DoctorNote, error) {
	args := m.Called(ctx, patientID, query, limit)
	v, _ := args.Get(0).([]*model.DoctorNote)
	return v, args.Error(1)
}

func (m *NoteRepository) ListPatientNotes(ctx context.Context, patientID string) ([]*model.PatientNote, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).([]*model.PatientNote)
	return v, args.Error(1)
}

func (m *NoteRepository) LatestPatientNote(ctx context.Context, patientID string) (*model.PatientNote, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).(*model.PatientNote)
	return v, args.Error(1)
}

func (m *NoteRepository) SaveDoctorQuestion(ctx context.Context, q *model.DoctorQuestion) error {
	return m.Called(ctx, q).Error(0)
}

func (m *NoteRepository) SaveDoctorAnswer(ctx context.Context, a *model.DoctorAnswer) error {
	return m.Called(ctx, a).Error(0)
}

type ResearchRepository struct{ mock.Mock }

func (m *ResearchRepository) SearchPapers(ctx context.Context, pattern string, limit int) ([]*model.ResearchPaper, error) {
	args := m.Called(ctx, pattern, limit)
	v, _ := args.Get(0).([]*model.ResearchPaper)
	return v, args.Error(1)
}

func (m *ResearchRepository) ResolvePMCLink(ctx context.Context, citation, title string) (string, error) {
	args := m.Called(ctx, citation, title)
	return args.String(0), args.Error(1)
}

func (m *ResearchRepository) PaperExists(ctx context.Context, citation string) (bool, error) {
	args := m.Called(ctx, citation)
	return args.Bool(0), args.Error(1)
}

func (m *ResearchRepository) SavePaper(ctx context.Context, paper *model.ResearchPaper) error {
	return m.Called(ctx, paper).Error(0)
}

func (m *ResearchRepository) MarkPaperVectorized(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ResearchRepository) ClaimUnvectorizedPapers(ctx context.Context, limit int) ([]*model.ResearchPaper, error) {
	args := m.Called(ctx, limit)
	v, _ := args.Get(0).([]*model.ResearchPaper)
	return v, args.Error(1)
}

func (m *ResearchRepository) SaveQuestion(ctx context.Context, q *model.ResearchQuestion) error {
	return m.Called(ctx, q).Error(0)
}

func (m *ResearchRepository) SaveAnswer(ctx context.Context, a *model.ResearchAnswer) error {
	return m.Called(ctx, a).Error(0)
}

func (m *ResearchRepository) UpdateAnswerRating(ctx context.Context, id string, rating int) (bool, error) {
	args := m.Called(ctx, id, rating)
	return args.Bool(0), args.Error(1)
}

type MessageRepository struct{ mock.Mock }

func (m *MessageRepository) ListPrivate(ctx context.Context, doctorID string, limit int) ([]*model.Message, error) {
	args := m.Called(ctx, doctorID, limit)
	v, _ := args.Get(0).([]*model.Message)
	return v, args.Error(1)
}

func (m *MessageRepository) ListPublic(ctx context.Context, limit int) ([]*model.Message, error) {
	args := m.Called(ctx, limit)
	v, _ := args.Get(0).([]*model.Message)
	return v, args.Error(1)
}

func (m *MessageRepository) Save(ctx context.Context, msg *model.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MessageRepository) MarkRead(ctx context.Context, id string, messageType model.MessageType) (bool, error) {
	args := m.Called(ctx, id, messageType)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepository) ListStaff(ctx context.Context) ([]*model.StaffMember, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]*model.StaffMember)
	return v, args.Error(1)
}

func (m *MessageRepository) SaveRoute(ctx context.Context, route *model.MessageRoute) error {
	return m.Called(ctx, route).Error(0)
}

type AppointmentRepository struct{ mock.Mock }

func (m *AppointmentRepository) ByDoctor(ctx context.Context, doctorID, startDate, endDate string) ([]*model.Appointment, error) {
	args := m.Called(ctx, doctorID, startDate, endDate)
	v, _ := args.Get(0).([]*model.Appointment)
	return v, args.Error(1)
}

func (m *AppointmentRepository) ByPatient(ctx context.Context, patientID string) ([]*model.Appointment, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).([]*model.Appointment)
	return v, args.Error(1)
}

func (m *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

type AlertRepository struct{ mock.Mock }

func (m *AlertRepository) SaveWithEvents(ctx context.Context, alerts []*model.WearableAlert, events []*model.OutboxEvent) error {
	return m.Called(ctx, alerts, events).Error(0)
}

func (m *AlertRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.WearableAlert, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).([]*model.WearableAlert)
	return v, args.Error(1)
}

type QuestionnaireSummaryRepository struct{ mock.Mock }

func (m *QuestionnaireSummaryRepository) Save(ctx context.Context, summary *model.QuestionnaireSummary) error {
	return m.Called(ctx, summary).Error(0)
}

type OutboxRepository struct{ mock.Mock }

func (m *OutboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *OutboxRepository) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	v, _ := args.Get(0).([]*model.OutboxEvent)
	return v, args.Error(1)
}

func (m *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}
