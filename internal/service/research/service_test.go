package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/mocks"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/vector"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

type fakeExternal struct {
	papers []model.ExternalPaper
	err    error
	max    int
}

func (f *fakeExternal) Tavily(_ context.Context, _ string, maxResults int) ([]model.ExternalPaper, error) {
	f.max = maxResults
	return f.papers, f.err
}

func (f *fakeExternal) PubMed(_ context.Context, _ string, maxResults, _ int, _ bool) ([]model.ExternalPaper, error) {
	f.max = maxResults
	return f.papers, f.err
}

type fixture struct {
	patients *mocks.PatientRepository
	repo     *mocks.ResearchRepository
	embedder *mocks.Embedder
	index    *mocks.VectorIndex
	llm      *mocks.LLM
	external *fakeExternal
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		patients: new(mocks.PatientRepository),
		repo:     new(mocks.ResearchRepository),
		embedder: new(mocks.Embedder),
		index:    new(mocks.VectorIndex),
		llm:      new(mocks.LLM),
		external: &fakeExternal{},
	}
	f.svc = NewService(f.patients, f.repo, f.embedder, f.index, f.llm, f.external, "Tiffany Mitchell")
	return f
}

func asthmaPatient() *model.Patient {
	return &model.Patient{PatientID: "1", PatientName: "Ava Thompson", MedicalConditions: "Asthma"}
}

func assertAppError(t *testing.T, err error, code apperrors.ErrorCode, message string) {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func TestPatientResearch_VectorPathResolvesLinks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vec := []float32{0.1, 0.2}

	f.patients.On("Get", ctx, "1").Return(asthmaPatient(), nil)
	f.embedder.On("Embed", ctx, "Asthma. "+DefaultQuestion).Return(vec, nil)
	f.index.On("SearchPapers", ctx, vec, patientTopK).Return([]model.Paper{
		{Title: "ICS in asthma", ArticleCitation: "Thorax 2023", ArticleText: "Inhaled steroids...", PMCLink: ""},
	}, nil)
	f.repo.On("ResolvePMCLink", ctx, "Thorax 2023", "ICS in asthma").Return("https://pmc.ncbi.nlm.nih.gov/articles/PMC1/", nil)
	f.llm.On("Complete", ctx, mock.MatchedBy(func(req llm.Request) bool {
		return strings.Contains(req.Prompt, "[1] ICS in asthma")
	})).Return("Start inhaled corticosteroids [1].", nil)

	res, err := f.svc.PatientResearch(ctx, "1", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuestion, res.Question)
	assert.Equal(t, "Asthma", res.Condition)
	require.Len(t, res.Papers, 1)
	assert.Equal(t, "https://pmc.ncbi.nlm.nih.gov/articles/PMC1/", res.Papers[0].PMCLink)
	assert.Equal(t, "Start inhaled corticosteroids [1].", res.Answer)
}

func TestPatientResearch_ZeroHitsGivesFallbackAnswer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vec := []float32{0.3}

	f.patients.On("Get", ctx, "1").Return(asthmaPatient(), nil)
	f.embedder.On("Embed", ctx, mock.Anything).Return(vec, nil)
	f.index.On("SearchPapers", ctx, vec, patientTopK).Return([]model.Paper{}, nil)

	res, err := f.svc.PatientResearch(ctx, "1", "Is montelukast useful?")
	require.NoError(t, err)
	assert.Empty(t, res.Papers)
	assert.Contains(t, res.Answer, "No relevant research papers were found for Asthma")
	f.llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFindPapers_KeywordFallbackOnEmbeddingFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.embedder.On("Embed", ctx, "COPD. bronchodilators").Return(nil, errors.New("breaker open"))
	f.repo.On("SearchPapers", ctx, "bronchodilators", 3).Return([]*model.ResearchPaper{}, nil)
	f.repo.On("SearchPapers", ctx, "COPD", 3).Return([]*model.ResearchPaper{{Title: "LAMA vs LABA"}}, nil)

	papers, err := f.svc.FindPapers(ctx, "COPD", "bronchodilators", 3)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "LAMA vs LABA", papers[0].Title)
}

func TestFindPapers_KeywordFallbackWhenIndexDisabled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vec := []float32{1}

	f.embedder.On("Embed", ctx, "spirometry").Return(vec, nil)
	f.index.On("SearchPapers", ctx, vec, 2).Return(nil, vector.ErrDisabled)
	f.repo.On("SearchPapers", ctx, "spirometry", 2).Return([]*model.ResearchPaper{{Title: "FEV1 decline"}}, nil)

	papers, err := f.svc.FindPapers(ctx, "", "spirometry", 2)
	require.NoError(t, err)
	assert.Equal(t, "FEV1 decline", papers[0].Title)
}

func TestAsk(t *testing.T) {
	t.Run("requires a question", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Ask(context.Background(), "1", "  ")
		assertAppError(t, err, apperrors.ErrBadRequest, "Question is required")
	})

	t.Run("records question and returns its id", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("SaveQuestion", ctx, mock.MatchedBy(func(q *model.ResearchQuestion) bool {
			return strings.HasPrefix(q.ID, "q_") && q.DoctorName == "Tiffany Mitchell" && q.QuestionAsked == "Dose?"
		})).Return(errors.New("write failed"))
		f.patients.On("Get", ctx, "1").Return(asthmaPatient(), nil)
		f.embedder.On("Embed", ctx, mock.Anything).Return([]float32{}, nil)
		f.repo.On("SearchPapers", ctx, mock.Anything, patientTopK).Return([]*model.ResearchPaper{}, nil)

		res, err := f.svc.Ask(ctx, "1", "Dose?")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.QuestionID, "q_"))
		assert.Equal(t, "Dose?", res.Question)
	})
}

func TestSaveAnswer_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.SaveAnswer(ctx, &model.SaveAnswerRequest{QuestionAsked: "q"})
	assertAppError(t, err, apperrors.ErrBadRequest, "question_asked and answer_provided are required")

	_, err = f.svc.SaveAnswer(ctx, &model.SaveAnswerRequest{QuestionAsked: "q", AnswerProvided: "a", AnswerRating: 4.5})
	assertAppError(t, err, apperrors.ErrBadRequest, "answer_rating must be an integer between 1 and 5")

	f.repo.On("SaveAnswer", ctx, mock.MatchedBy(func(a *model.ResearchAnswer) bool {
		return strings.HasPrefix(a.ID, "a_") && a.AnswerRating != nil && *a.AnswerRating == 5
	})).Return(nil)
	out, err := f.svc.SaveAnswer(ctx, &model.SaveAnswerRequest{QuestionAsked: "q", AnswerProvided: "a", AnswerRating: float64(5)})
	require.NoError(t, err)
	assert.Equal(t, "Answer saved successfully", out.Message)
}

func TestUpdateRating(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.UpdateRating(ctx, "a_1", "5")
	assertAppError(t, err, apperrors.ErrBadRequest, "Rating must be an integer between 1 and 5")

	f.repo.On("UpdateAnswerRating", ctx, "a_missing", 3).Return(false, nil)
	_, err = f.svc.UpdateRating(ctx, "a_missing", float64(3))
	assertAppError(t, err, apperrors.ErrNotFound, "Answer not found or update failed")

	f.repo.On("UpdateAnswerRating", ctx, "a_1", 2).Return(true, nil)
	out, err := f.svc.UpdateRating(ctx, "a_1", json.Number("2"))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rating)
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   interface{}
		want int
		ok   bool
	}{
		{float64(1), 1, true},
		{float64(5), 5, true},
		{float64(0), 0, false},
		{float64(6), 0, false},
		{3.2, 0, false},
		{"3", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRating(tt.in)
		assert.Equal(t, tt.ok, ok, "input %v", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
	}
}

func TestAddPaper(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AddPaper(context.Background(), &model.AddPaperRequest{Title: "x"})
		assertAppError(t, err, apperrors.ErrBadRequest, "Missing required fields: title, article_text, article_citation")
	})

	t.Run("duplicate citation", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("PaperExists", ctx, "https://example.org/a").Return(true, nil)
		_, err := f.svc.AddPaper(ctx, &model.AddPaperRequest{Title: "x", ArticleText: "y", ArticleCitation: "https://example.org/a"})
		assertAppError(t, err, apperrors.ErrConflict, "Paper already exists in database")
	})

	t.Run("citation inserted concurrently", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("PaperExists", ctx, "https://example.org/a").Return(false, nil)
		f.embedder.On("Embed", ctx, "body").Return(nil, llm.ErrNotConfigured)
		f.repo.On("SavePaper", ctx, mock.Anything).
			Return(fmt.Errorf("paper %q: %w", "https://example.org/a", repository.ErrConflict))

		_, err := f.svc.AddPaper(ctx, &model.AddPaperRequest{Title: "x", ArticleText: "body", ArticleCitation: "https://example.org/a"})
		assertAppError(t, err, apperrors.ErrConflict, "Paper already exists in database")
		appErr, _ := apperrors.As(err)
		assert.Equal(t, http.StatusConflict, appErr.HTTPStatus())
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("other save errors stay internal", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("PaperExists", ctx, "c").Return(false, nil)
		f.embedder.On("Embed", ctx, "body").Return(nil, llm.ErrNotConfigured)
		f.repo.On("SavePaper", ctx, mock.Anything).Return(errors.New("pq: connection reset"))

		_, err := f.svc.AddPaper(ctx, &model.AddPaperRequest{Title: "x", ArticleText: "body", ArticleCitation: "c"})
		assertAppError(t, err, apperrors.ErrInternal, "Failed to save paper to database")
	})

	t.Run("stores defaults and vectorizes", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		vec := []float32{0.5}
		f.repo.On("PaperExists", ctx, "https://example.org/a").Return(false, nil)
		f.embedder.On("Embed", ctx, "body").Return(vec, nil)
		f.repo.On("SavePaper", ctx, mock.MatchedBy(func(p *model.ResearchPaper) bool {
			return strings.HasPrefix(p.ID, "tavily_") && len(p.ID) > len("tavily_")+9 &&
				p.Author == "Unknown" && p.PMCLink == "https://example.org/a" &&
				p.SourceType == "tavily" && p.AddedBy == "Tiffany Mitchell"
		})).Return(nil)
		f.index.On("UpsertPapers", ctx, mock.Anything, [][]float32{vec}).Return(nil)
		f.repo.On("MarkPaperVectorized", ctx, mock.Anything).Return(nil)

		out, err := f.svc.AddPaper(ctx, &model.AddPaperRequest{Title: "x", ArticleText: "body", ArticleCitation: "https://example.org/a"})
		require.NoError(t, err)
		assert.True(t, out.Vectorized)
		assert.Equal(t, "Paper added successfully", out.Message)
	})

	t.Run("embedding failure still saves", func(t *testing.T) {
		f := newFixture()
		ctx := context.Background()
		f.repo.On("PaperExists", ctx, "c").Return(false, nil)
		f.embedder.On("Embed", ctx, "body").Return(nil, llm.ErrNotConfigured)
		f.repo.On("SavePaper", ctx, mock.Anything).Return(nil)

		out, err := f.svc.AddPaper(ctx, &model.AddPaperRequest{Title: "x", ArticleText: "body", ArticleCitation: "c"})
		require.NoError(t, err)
		assert.False(t, out.Vectorized)
		f.index.AssertNotCalled(t, "UpsertPapers", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTavilySearch_Errors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.TavilySearch(ctx, &model.ExternalSearchRequest{})
	assertAppError(t, err, apperrors.ErrBadRequest, "Query is required")

	f.external.err = ErrTavilyNotConfigured
	_, err = f.svc.TavilySearch(ctx, &model.ExternalSearchRequest{Query: "copd"})
	assertAppError(t, err, apperrors.ErrUnavailable, "Tavily API not configured")

	f.external.err = errors.New("status 500")
	_, err = f.svc.TavilySearch(ctx, &model.ExternalSearchRequest{Query: "copd", MaxResults: 50})
	assertAppError(t, err, apperrors.ErrBadGateway, "Tavily API error: status 500")
	assert.Equal(t, maxExternal, f.external.max)
}

func TestPubMedSearch_DefaultsMaxResults(t *testing.T) {
	f := newFixture()
	f.external.papers = []model.ExternalPaper{{Title: "t", SourceType: "pubmed"}}

	out, err := f.svc.PubMedSearch(context.Background(), &model.ExternalSearchRequest{Query: "asthma"})
	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
	assert.Equal(t, defaultExternal, f.external.max)
}

func TestBackfill(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	vec := []float32{0.9}
	papers := []*model.ResearchPaper{{ID: "p1", ArticleText: "a"}, {ID: "p2", ArticleText: ""}}

	f.repo.On("ClaimUnvectorizedPapers", ctx, 50).Return(papers, nil)
	f.embedder.On("Embed", ctx, "a").Return(vec, nil)
	f.embedder.On("Embed", ctx, "").Return([]float32{}, nil)
	f.index.On("UpsertPapers", ctx, []*model.ResearchPaper{papers[0]}, [][]float32{vec}).Return(nil)
	f.repo.On("MarkPaperVectorized", ctx, "p1").Return(nil)

	n, scanned, err := f.svc.Backfill(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, scanned)
}
