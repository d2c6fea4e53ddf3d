package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/repository"
)

// Repositories bundles every Postgres-backed repository over one pool.
type Repositories struct {
	Patients               repository.PatientRepository
	Wearables              repository.WearableRepository
	Notes                  repository.NoteRepository
	Research               repository.ResearchRepository
	Messages               repository.MessageRepository
	Appointments           repository.AppointmentRepository
	Alerts                 repository.AlertRepository
	QuestionnaireSummaries repository.QuestionnaireSummaryRepository
	Outbox                 repository.OutboxRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Patients:               NewPatientRepository(db),
		Wearables:              NewWearableRepository(db),
		Notes:                  NewNoteRepository(db),
		Research:               NewResearchRepository(db),
		Messages:               NewMessageRepository(db),
		Appointments:           NewAppointmentRepository(db),
		Alerts:                 NewAlertRepository(db),
		QuestionnaireSummaries: NewQuestionnaireSummaryRepository(db),
		Outbox:                 NewOutboxRepository(db),
	}
}
