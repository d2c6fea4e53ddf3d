package research

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/service/patient"
	"github.com/patientiq/dashboard-api/internal/textutil"
	"github.com/patientiq/dashboard-api/internal/vector"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

const (
	DefaultQuestion = "What are evidence-based treatment options and practical next steps for this patient's condition?"

	patientTopK       = 5
	defaultExternal   = 3
	maxExternal       = 10
	promptPaperChars  = 1500
	answerMaxTokens   = 600
	answerTemperature = 0.2
)

type Service struct {
	patients repository.PatientRepository
	repo     repository.ResearchRepository
	embedder llm.Embedder
	index    vector.Index
	llm      llm.Client
	external ExternalSearcher
	doctor   string
}

func NewService(
	patients repository.PatientRepository,
	repo repository.ResearchRepository,
	embedder llm.Embedder,
	index vector.Index,
	client llm.Client,
	external ExternalSearcher,
	defaultDoctor string,
) *Service {
	return &Service{
		patients: patients,
		repo:     repo,
		embedder: embedder,
		index:    index,
		llm:      client,
		external: external,
		doctor:   defaultDoctor,
	}
}

// FindPapers retrieves up to k papers for query, prefixed with the patient's
// condition. Embedding or index failures fall back to a keyword search.
func (s *Service) FindPapers(ctx context.Context, condition, query string, k int) ([]model.Paper, error) {
	enhanced := query
	if condition != "" {
		enhanced = condition + ". " + query
	}

	vec, err := s.embedder.Embed(ctx, enhanced)
	if err == nil && len(vec) > 0 {
		papers, err := s.index.SearchPapers(ctx, vec, k)
		if err == nil {
			return papers, nil
		}
		log.Warn().Err(err).Msg("paper vector search failed, using keyword search")
	} else if err != nil {
		log.Warn().Err(err).Msg("query embedding failed, using keyword search")
	}

	return s.keywordPapers(ctx, condition, query, k)
}

func (s *Service) keywordPapers(ctx context.Context, condition, query string, k int) ([]model.Paper, error) {
	stored, err := s.repo.SearchPapers(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search papers: %w", err)
	}
	if len(stored) == 0 && condition != "" {
		if stored, err = s.repo.SearchPapers(ctx, condition, k); err != nil {
			return nil, fmt.Errorf("failed to search papers: %w", err)
		}
	}

	papers := make([]model.Paper, 0, len(stored))
	for _, p := range stored {
		papers = append(papers, model.Paper{
			Title:           p.Title,
			Author:          p.Author,
			ArticleText:     p.ArticleText,
			ArticleCitation: p.ArticleCitation,
			PMCLink:         p.PMCLink,
		})
	}
	return papers, nil
}

// PatientResearch answers question for the patient's condition from the
// retrieved papers only.
func (s *Service) PatientResearch(ctx context.Context, patientID, question string) (*model.ResearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		question = DefaultQuestion
	}

	p, err := patient.Load(ctx, s.patients, patientID)
	if err != nil {
		return nil, err
	}

	papers, err := s.FindPapers(ctx, p.MedicalConditions, question, patientTopK)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("paper retrieval failed")
		papers = nil
	}
	papers = s.normalizePapers(ctx, papers)

	result := &model.ResearchResult{
		PatientID:   p.PatientID,
		PatientName: p.PatientName,
		Condition:   p.MedicalConditions,
		Question:    question,
		Papers:      papers,
	}
	result.Answer = s.answer(ctx, p, question, papers)

	log.Info().
		Str("patient_id", patientID).
		Int("papers", len(papers)).
		Int("answer_len", len(result.Answer)).
		Msg("research answered")
	return result, nil
}

// Ask records the question and answers it like PatientResearch.
func (s *Service) Ask(ctx context.Context, patientID, question string) (*model.ResearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewBadRequest("Question is required", nil)
	}

	now := time.Now()
	q := &model.ResearchQuestion{
		ID:            fmt.Sprintf("q_%d", now.UnixMilli()),
		PatientID:     patientID,
		QuestionAsked: question,
		DoctorName:    s.doctor,
		Timestamp:     now.UTC(),
	}
	if err := s.repo.SaveQuestion(ctx, q); err != nil {
		log.Warn().Err(err).Str("question_id", q.ID).Msg("failed to save research question")
	}

	result, err := s.PatientResearch(ctx, patientID, question)
	if err != nil {
		return nil, err
	}
	result.QuestionID = q.ID
	return result, nil
}

func (s *Service) SaveAnswer(ctx context.Context, req *model.SaveAnswerRequest) (*model.AnswerSaved, error) {
	questionAsked := strings.TrimSpace(req.QuestionAsked)
	answerProvided := strings.TrimSpace(req.AnswerProvided)
	if questionAsked == "" || answerProvided == "" {
		return nil, apperrors.NewBadRequest("question_asked and answer_provided are required", nil)
	}

	var rating *int
	if req.AnswerRating != nil {
		r, ok := ParseRating(req.AnswerRating)
		if !ok {
			return nil, apperrors.NewBadRequest("answer_rating must be an integer between 1 and 5", nil)
		}
		rating = &r
	}

	doctor := strings.TrimSpace(req.DoctorName)
	if doctor == "" {
		doctor = s.doctor
	}

	now := time.Now()
	answer := &model.ResearchAnswer{
		ID:             fmt.Sprintf("a_%d", now.UnixMilli()),
		QuestionID:     req.QuestionID,
		QuestionAsked:  questionAsked,
		AnswerProvided: answerProvided,
		AnswerRating:   rating,
		DoctorName:     doctor,
		Timestamp:      now.UTC(),
	}
	if err := s.repo.SaveAnswer(ctx, answer); err != nil {
		return nil, apperrors.NewInternal("Failed to save answer", err)
	}
	return &model.AnswerSaved{Message: "Answer saved successfully", AnswerID: answer.ID}, nil
}

func (s *Service) UpdateRating(ctx context.Context, answerID string, raw interface{}) (*model.RatingUpdated, error) {
	rating, ok := ParseRating(raw)
	if !ok {
		return nil, apperrors.NewBadRequest("Rating must be an integer between 1 and 5", nil)
	}

	updated, err := s.repo.UpdateAnswerRating(ctx, answerID, rating)
	if err != nil {
		log.Error().Err(err).Str("answer_id", answerID).Msg("rating update failed")
	}
	if err != nil || !updated {
		return nil, apperrors.NewNotFound("Answer not found or update failed", err)
	}
	return &model.RatingUpdated{Message: "Rating updated successfully", AnswerID: answerID, Rating: rating}, nil
}

// ParseRating accepts whole numbers from 1 to 5 as decoded from JSON.
func ParseRating(v interface{}) (int, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, false
		}
		n = float64(i)
	default:
		return 0, false
	}
	if n != math.Trunc(n) || n < 1 || n > 5 {
		return 0, false
	}
	return int(n), true
}

func errPaperExists(err error) error {
	return apperrors.NewConflict("Paper already exists in database", err)
}

// AddPaper stores a paper found by an external search and indexes it when
// an embedding can be produced.
func (s *Service) AddPaper(ctx context.Context, req *model.AddPaperRequest) (*model.PaperAdded, error) {
	title := strings.TrimSpace(req.Title)
	text := strings.TrimSpace(req.ArticleText)
	citation := strings.TrimSpace(req.ArticleCitation)
	if title == "" || text == "" || citation == "" {
		return nil, apperrors.NewBadRequest("Missing required fields: title, article_text, article_citation", nil)
	}

	exists, err := s.repo.PaperExists(ctx, citation)
	if err != nil {
		return nil, fmt.Errorf("failed to check paper: %w", err)
	}
	if exists {
		return nil, errPaperExists(nil)
	}

	sum := md5.Sum([]byte(citation))
	paper := &model.ResearchPaper{
		ID:              fmt.Sprintf("tavily_%d_%s", time.Now().Unix(), hex.EncodeToString(sum[:])[:8]),
		Title:           title,
		Author:          orDefault(req.Author, "Unknown"),
		ArticleText:     text,
		ArticleCitation: citation,
		PMCLink:         orDefault(req.PMCLink, citation),
		SourceType:      orDefault(req.SourceType, "tavily"),
		AddedBy:         s.doctor,
	}

	vec, embedErr := s.embedder.Embed(ctx, text)
	if embedErr != nil {
		log.Warn().Err(embedErr).Str("paper_id", paper.ID).Msg("paper vectorization failed")
	}

	if err := s.repo.SavePaper(ctx, paper); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errPaperExists(err)
		}
		return nil, apperrors.NewInternal("Failed to save paper to database", err)
	}

	vectorized := false
	if embedErr == nil && len(vec) > 0 {
		if err := s.index.UpsertPapers(ctx, []*model.ResearchPaper{paper}, [][]float32{vec}); err != nil {
			log.Warn().Err(err).Str("paper_id", paper.ID).Msg("paper index upsert failed")
		} else if err := s.repo.MarkPaperVectorized(ctx, paper.ID); err != nil {
			log.Warn().Err(err).Str("paper_id", paper.ID).Msg("failed to flag paper as vectorized")
		} else {
			vectorized = true
		}
	}

	log.Info().Str("paper_id", paper.ID).Bool("vectorized", vectorized).Msg("paper added")
	return &model.PaperAdded{Message: "Paper added successfully", PaperID: paper.ID, Vectorized: vectorized}, nil
}

func (s *Service) TavilySearch(ctx context.Context, req *model.ExternalSearchRequest) (*model.ExternalSearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.NewBadRequest("Query is required", nil)
	}

	papers, err := s.external.Tavily(ctx, query, clampResults(req.MaxResults))
	if err != nil {
		if errors.Is(err, ErrTavilyNotConfigured) {
			return nil, apperrors.NewUnavailable("Tavily API not configured", err)
		}
		return nil, apperrors.NewBadGateway("Tavily API error: "+err.Error(), err)
	}
	return &model.ExternalSearchResult{Results: papers}, nil
}

func (s *Service) PubMedSearch(ctx context.Context, req *model.ExternalSearchRequest) (*model.ExternalSearchResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.NewBadRequest("Query is required", nil)
	}
	includePMC := true
	if req.IncludePMCFullText != nil {
		includePMC = *req.IncludePMCFullText
	}

	papers, err := s.external.PubMed(ctx, query, clampResults(req.MaxResults), req.DaysBack, includePMC)
	if err != nil {
		return nil, apperrors.NewBadGateway("PubMed API error: "+err.Error(), err)
	}
	return &model.ExternalSearchResult{Results: papers}, nil
}

// Backfill claims up to limit stored papers that have no vector and indexes
// them. It reports how many were indexed and how many were claimed.
func (s *Service) Backfill(ctx context.Context, limit int) (indexed, scanned int, err error) {
	papers, err := s.repo.ClaimUnvectorizedPapers(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to claim unvectorized papers: %w", err)
	}

	for _, p := range papers {
		vec, err := s.embedder.Embed(ctx, p.ArticleText)
		if err != nil || len(vec) == 0 {
			log.Warn().Err(err).Str("paper_id", p.ID).Msg("skipping paper without embedding")
			continue
		}
		if err := s.index.UpsertPapers(ctx, []*model.ResearchPaper{p}, [][]float32{vec}); err != nil {
			return indexed, len(papers), fmt.Errorf("failed to index paper %s: %w", p.ID, err)
		}
		if err := s.repo.MarkPaperVectorized(ctx, p.ID); err != nil {
			return indexed, len(papers), fmt.Errorf("failed to mark paper %s: %w", p.ID, err)
		}
		indexed++
	}
	return indexed, len(papers), nil
}

// normalizePapers swaps in the stored PMC link for each retrieved paper.
func (s *Service) normalizePapers(ctx context.Context, papers []model.Paper) []model.Paper {
	out := make([]model.Paper, 0, len(papers))
	for _, p := range papers {
		link, err := s.repo.ResolvePMCLink(ctx, p.ArticleCitation, p.Title)
		if err == nil && strings.TrimSpace(link) != "" {
			p.PMCLink = strings.TrimSpace(link)
		}
		out = append(out, p)
	}
	return out
}

func (s *Service) answer(ctx context.Context, p *model.Patient, question string, papers []model.Paper) string {
	if len(papers) == 0 {
		return noPapersAnswer(p.MedicalConditions)
	}

	var b strings.Builder
	for i, paper := range papers {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, paper.Title, paper.ArticleCitation, textutil.Truncate(paper.ArticleText, promptPaperChars))
	}

	prompt := "You are a pulmonary research assistant supporting a physician. Answer the question using ONLY the research papers below. " +
		"Cite papers by their bracketed number, say plainly when the papers do not address the question, and keep the answer " +
		"under 200 words with practical next steps. Do not mention that you are an AI.\n\n" +
		fmt.Sprintf("Patient: %s\nCondition: %s\nQuestion: %s\n\nPapers:\n%s", p.PatientName, orDefault(p.MedicalConditions, "unknown"), question, b.String())

	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: answerMaxTokens, Temperature: answerTemperature})
	if err == nil {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	} else {
		log.Warn().Err(err).Str("patient_id", p.PatientID).Msg("research answer fell back to paper list")
	}

	titles := make([]string, 0, len(papers))
	for _, paper := range papers {
		titles = append(titles, paper.Title)
	}
	return fmt.Sprintf("The research assistant is unavailable. Relevant papers for %s: %s.",
		orDefault(p.MedicalConditions, "this patient"), strings.Join(titles, "; "))
}

func noPapersAnswer(condition string) string {
	if condition == "" {
		return "No relevant research papers were found for this question. Try rephrasing it or add papers to the research library."
	}
	return fmt.Sprintf("No relevant research papers were found for %s. Try rephrasing the question or add papers to the research library.", condition)
}

func clampResults(n int) int {
	if n <= 0 {
		return defaultExternal
	}
	if n > maxExternal {
		return maxExternal
	}
	return n
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
