package wearable

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/mocks"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
	"github.com/patientiq/dashboard-api/pkg/messaging"
)

type stubPapers struct {
	query  string
	papers []model.Paper
	err    error
}

func (s *stubPapers) FindPapers(_ context.Context, _ string, query string, _ int) ([]model.Paper, error) {
	s.query = query
	return s.papers, s.err
}

type agentFixture struct {
	patients  *mocks.PatientRepository
	wearables *mocks.WearableRepository
	alerts    *mocks.AlertRepository
	papers    *stubPapers
	llm       *mocks.LLM
	svc       *Service
}

func newAgentFixture() *agentFixture {
	f := &agentFixture{
		patients:  new(mocks.PatientRepository),
		wearables: new(mocks.WearableRepository),
		alerts:    new(mocks.AlertRepository),
		papers:    &stubPapers{},
		llm:       new(mocks.LLM),
	}
	f.svc = NewService(f.patients, f.wearables, f.alerts, f.papers, f.llm, nil)
	return f
}

var copdPatient = &model.Patient{PatientID: "7", PatientName: "Ray Ortiz", Age: 68, Gender: "Male", MedicalConditions: "COPD"}

// newestFirst mirrors the repository ordering.
func newestFirst(readings []*model.WearableReading) []*model.WearableReading {
	out := make([]*model.WearableReading, len(readings))
	for i, r := range readings {
		out[len(readings)-1-i] = r
	}
	return out
}

func TestAnalyzeAgent_StoresAlertsAndQueuesEvents(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()
	readings := series(
		[]float64{80, 125, 90, 85, 88},
		[]float64{90, 89, 87, 90, 91},
		[]float64{1000, 1200, 900, 800, 1500},
		nil,
	)

	f.patients.On("Get", ctx, "7").Return(copdPatient, nil)
	f.wearables.On("Recent", ctx, "7", AnalysisDays).Return(newestFirst(readings), nil)
	f.patients.On("FindSimilar", ctx, "7", 68, CohortAgeRange, "Male", "COPD", CohortLimit).Return([]*model.Patient{
		{PatientID: "8", Age: 70, Gender: "Male", MedicalConditions: "COPD"},
	}, nil)
	f.papers.papers = []model.Paper{{Title: "Oxygen therapy in COPD"}}
	f.llm.On("Complete", ctx, mock.Anything).Return("**Critical** desaturation overnight.", nil)

	var saved []*model.WearableAlert
	var events []*model.OutboxEvent
	f.alerts.On("SaveWithEvents", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).([]*model.WearableAlert)
			events = args.Get(2).([]*model.OutboxEvent)
		}).Return(nil)

	got, err := f.svc.Analyze(ctx, "7", "  ")
	require.NoError(t, err)

	assert.Equal(t, DefaultQuestion, got.Question)
	assert.Equal(t, "alerts", got.QuestionType)
	assert.Equal(t, "**Critical** desaturation overnight.", got.Answer)
	assert.Equal(t, 5, got.DataPoints)
	require.Len(t, got.SimilarPatients, 1)
	assert.Equal(t, "critical", got.PatientComparison.OutlierStatus)
	assert.Len(t, got.ResearchPapers, 1)
	assert.True(t, strings.HasPrefix(f.papers.query, "blood oxygen level: CRITICAL"), f.papers.query)

	// critical O2, high heart rate, medium activity
	require.Len(t, saved, 3)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, messaging.AlertChannel, e.Channel)
		assert.Equal(t, model.OutboxStatusPending, e.Status)
	}
	assert.Equal(t, model.PriorityMedium, saved[2].Priority)
	assert.Equal(t, "7", saved[0].PatientID)
	f.alerts.AssertExpectations(t)
}

func TestAnalyzeAgent_FallsBackWithoutModel(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()

	f.patients.On("Get", ctx, "7").Return(copdPatient, nil)
	f.wearables.On("Recent", ctx, "7", AnalysisDays).Return(newestFirst(series([]float64{72, 74}, []float64{97, 96}, nil, nil)), nil)
	f.patients.On("FindSimilar", ctx, "7", 68, CohortAgeRange, "Male", "COPD", CohortLimit).Return(nil, errors.New("db down"))
	f.llm.On("Complete", ctx, mock.Anything).Return("", errors.New("no key"))

	got, err := f.svc.Analyze(ctx, "7", "How does he compare with others?")
	require.NoError(t, err)

	assert.Equal(t, "comparison", got.QuestionType)
	assert.Equal(t, "Analysis for Ray Ortiz (COPD): No critical alerts detected. Metrics within acceptable ranges.", got.Answer)
	assert.Empty(t, got.SimilarPatients)
	assert.Equal(t, "Insufficient cohort data for comparison", got.PatientComparison.Summary)
	assert.Empty(t, got.ResearchPapers)
	assert.Equal(t, []string{"Continue monitoring wearable data for COPD", "Maintain regular follow-up schedule"}, got.Recommendations)
	f.alerts.AssertNotCalled(t, "SaveWithEvents", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeAgent_UnknownPatient(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()
	f.patients.On("Get", ctx, "404").Return(nil, repository.ErrNotFound)

	_, err := f.svc.Analyze(ctx, "404", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAlerts(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()
	f.alerts.On("ListByPatient", ctx, "7").Return([]*model.WearableAlert{
		{ID: "a1", PatientID: "7", Priority: model.PriorityHigh, CreatedAt: time.Now()},
	}, nil)
	f.alerts.On("ListByPatient", ctx, "8").Return(nil, nil)

	list, err := f.svc.Alerts(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)

	empty, err := f.svc.Alerts(ctx, "8")
	require.NoError(t, err)
	assert.NotNil(t, empty.Alerts)
	assert.Equal(t, 0, empty.Count)
}

func TestScan(t *testing.T) {
	f := newAgentFixture()
	ctx := context.Background()
	calm := &model.Patient{PatientID: "1", MedicalConditions: "Asthma"}
	skipped := &model.Patient{PatientID: "2", MedicalConditions: "Asthma"}

	f.patients.On("List", ctx).Return([]*model.Patient{calm, skipped, copdPatient}, nil)
	f.wearables.On("Recent", ctx, "1", AnalysisDays).Return(series([]float64{70}, []float64{98}, nil, nil), nil)
	f.wearables.On("Recent", ctx, "2", AnalysisDays).Return(nil, errors.New("timeout"))
	f.wearables.On("Recent", ctx, "7", AnalysisDays).Return(series(nil, []float64{86}, nil, nil), nil)
	f.alerts.On("SaveWithEvents", ctx, mock.Anything, mock.Anything).Return(nil).Once()

	raised, err := f.svc.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, raised, 1)
	assert.Equal(t, "7", raised[0].PatientID)
	assert.Equal(t, model.PriorityCritical, raised[0].Priority)
	f.alerts.AssertExpectations(t)
}
