package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
)

type LLM struct{ mock.Mock }

func (m *LLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type Embedder struct{ mock.Mock }

func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Error(1)
}

type VectorIndex struct{ mock.Mock }

func (m *VectorIndex) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *VectorIndex) UpsertPapers(ctx context.Context, papers []*model.ResearchPaper, vectors [][]float32) error {
	return m.Called(ctx, papers, vectors).Error(0)
}

func (m *VectorIndex) UpsertNote(ctx context.Context, note *model.DoctorNote, vector []float32) error {
	return m.Called(ctx, note, vector).Error(0)
}

func (m *VectorIndex) DeleteNote(ctx context.Context, noteID string) error {
	return m.Called(ctx, noteID).Error(0)
}

func (m *VectorIndex) SearchPapers(ctx context.Context, vector []float32, k int) ([]model.Paper, error) {
	args := m.Called(ctx, vector, k)
	v, _ := args.Get(0).([]model.Paper)
	return v, args.Error(1)
}

func (m *VectorIndex) SearchNotes(ctx context.Context, vector []float32, patientID string, k int) ([]model.NoteHit, error) {
	args := m.Called(ctx, vector, patientID, k)
	v, _ := args.Get(0).([]model.NoteHit)
	return v, args.Error(1)
}

type QuestionnaireSource struct{ mock.Mock }

func (m *QuestionnaireSource) Load(ctx context.Context, patientID string) (model.Questionnaire, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).(model.Questionnaire)
	return v, args.Error(1)
}
