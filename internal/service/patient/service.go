package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/service/questionnaire"
	"github.com/patientiq/dashboard-api/internal/textutil"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

const (
	DefaultWearableDays = 30
	researchSnippets    = 3
	snippetChars        = 700
	nextVisitOffset     = 30 * 24 * time.Hour
)

type PatientService interface {
	List(ctx context.Context) ([]*model.PatientView, error)
	Get(ctx context.Context, id string) (*model.PatientView, error)
	Upsert(ctx context.Context, req *model.UpsertPatientRequest) (string, error)
	Wearables(ctx context.Context, id string, days int) (model.WearableSeries, error)
	PatientNotes(ctx context.Context, id string) (*model.NoteList, error)
	Summary(ctx context.Context, id string) (*model.PatientSummary, error)
}

type Service struct {
	repo           repository.PatientRepository
	wearableRepo   repository.WearableRepository
	noteRepo       repository.NoteRepository
	researchRepo   repository.ResearchRepository
	questionnaires questionnaire.Source
	llm            llm.Client
}

func NewService(
	repo repository.PatientRepository,
	wearableRepo repository.WearableRepository,
	noteRepo repository.NoteRepository,
	researchRepo repository.ResearchRepository,
	questionnaires questionnaire.Source,
	client llm.Client,
) *Service {
	return &Service{
		repo:           repo,
		wearableRepo:   wearableRepo,
		noteRepo:       noteRepo,
		researchRepo:   researchRepo,
		questionnaires: questionnaires,
		llm:            client,
	}
}

// NotFound is the error every patient lookup returns for an unknown id.
func NotFound(id string, err error) error {
	return apperrors.NewNotFound(fmt.Sprintf("Patient %s not found", id), err)
}

// Load fetches the stored patient, mapping a missing row to NotFound.
func Load(ctx context.Context, repo repository.PatientRepository, id string) (*model.Patient, error) {
	p, err := repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(id, err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*model.PatientView, error) {
	patients, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	views := make([]*model.PatientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, s.toView(ctx, p))
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.PatientView, error) {
	p, err := Load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return s.toView(ctx, p), nil
}

// Upsert stores the dashboard's patient shape, keeping every submitted field
// (the wearable series included) in the raw document.
func (s *Service) Upsert(ctx context.Context, req *model.UpsertPatientRequest) (string, error) {
	raw := model.JSONMap{}
	encoded, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode patient: %w", err)
	}
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return "", fmt.Errorf("failed to encode patient: %w", err)
	}

	p := &model.Patient{
		PatientID:         req.ID,
		PatientName:       req.Name,
		Age:               req.Age,
		Gender:            req.Gender,
		MedicalConditions: req.Condition,
		AdmissionDate:     req.LastVisit,
		Raw:               raw,
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return "", fmt.Errorf("failed to save patient: %w", err)
	}

	log.Info().Str("patient_id", req.ID).Msg("patient saved")
	return req.ID, nil
}

// Wearables returns the last days readings in chronological order.
func (s *Service) Wearables(ctx context.Context, id string, days int) (model.WearableSeries, error) {
	if days <= 0 {
		days = DefaultWearableDays
	}
	readings, err := s.wearableRepo.Recent(ctx, id, days)
	if err != nil {
		return emptySeries(), fmt.Errorf("failed to get wearables: %w", err)
	}
	return toSeries(readings), nil
}

func (s *Service) PatientNotes(ctx context.Context, id string) (*model.NoteList, error) {
	notes, err := s.noteRepo.ListPatientNotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient notes: %w", err)
	}

	entries := make([]model.NoteEntry, 0, len(notes))
	for _, n := range notes {
		date := textutil.NormalizeDate(n.VisitDate)
		if date == "" || n.VisitNotes == "" {
			continue
		}
		entries = append(entries, model.NoteEntry{ID: n.ID, Date: date, Content: n.VisitNotes})
	}
	return &model.NoteList{PatientID: id, Notes: entries, Count: len(entries)}, nil
}

// Summary writes one paragraph over the redacted patient document and, when
// present, the pre-visit questionnaire.
func (s *Service) Summary(ctx context.Context, id string) (*model.PatientSummary, error) {
	p, err := Load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	var questionnaireDoc interface{}
	if q, err := s.questionnaires.Load(ctx, id); err == nil {
		questionnaireDoc = textutil.RedactPII(map[string]interface{}(q))
	} else if !apperrors.IsNotFound(err) {
		log.Warn().Err(err).Str("patient_id", id).Msg("questionnaire unavailable for summary")
	}

	redacted := textutil.RedactPII(p.Document())
	patientJSON, _ := json.Marshal(redacted)
	questionnaireJSON, _ := json.Marshal(questionnaireDoc)

	prompt := "You are a clinical assistant. Write ONE paragraph summarizing the patient's profile and, if available, " +
		"their pre-visit questionnaire. Capture key conditions, symptoms, functional impact, exposures, and follow-up needs. " +
		"Be factual and concise. Do not mention that you are an AI. " +
		"Do NOT include any email addresses, phone numbers, insurance numbers, emergency contacts, or other personal contact information. " +
		"End with a period.\n\n" +
		"Patient profile JSON:\n" + string(patientJSON) + "\n\n" +
		"Pre-visit questionnaire JSON (if present):\n" + string(questionnaireJSON)

	summary := ""
	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: 220, Temperature: 0})
	if err != nil {
		log.Warn().Err(err).Str("patient_id", id).Msg("patient summary fell back to profile line")
	} else {
		summary = textutil.TrimToLastSentence(text)
	}
	if summary == "" {
		summary = profileLine(p)
	}

	return &model.PatientSummary{PatientID: id, Patient: redacted, Summary: summary}, nil
}

// profileLine is the deterministic summary used when the model is unavailable.
func profileLine(p *model.Patient) string {
	name := p.PatientName
	if name == "" {
		name = "Patient " + p.PatientID
	}
	line := name
	if p.Age > 0 {
		line += fmt.Sprintf(", age %d", p.Age)
	}
	if p.Gender != "" {
		line += ", " + p.Gender
	}
	if p.MedicalConditions != "" {
		line += ", is followed for " + p.MedicalConditions
	} else {
		line += ", has no recorded condition"
	}
	return line + "."
}

func (s *Service) toView(ctx context.Context, p *model.Patient) *model.PatientView {
	view := &model.PatientView{
		ID:              p.PatientID,
		Name:            p.PatientName,
		Age:             p.Age,
		Gender:          p.Gender,
		Condition:       p.MedicalConditions,
		Avatar:          textutil.Initials(p.PatientName),
		LastVisit:       p.AdmissionDate,
		NextAppointment: nextAppointment(p.AdmissionDate),
		WearableData:    emptySeries(),
		ResearchTopic:   "Pulmonary research",
		ResearchContent: []string{},
	}
	if p.MedicalConditions != "" {
		view.ResearchTopic = "Pulmonary research for " + p.MedicalConditions
	}

	logger := log.With().Str("patient_id", p.PatientID).Logger()

	if readings, err := s.wearableRepo.Recent(ctx, p.PatientID, DefaultWearableDays); err != nil {
		logger.Warn().Err(err).Msg("wearables unavailable")
	} else {
		view.WearableData = toSeries(readings)
	}

	if note, err := s.noteRepo.LatestPatientNote(ctx, p.PatientID); err != nil {
		logger.Warn().Err(err).Msg("latest patient note unavailable")
	} else if note != nil {
		view.PrivateNotes = note.VisitNotes
	}

	if sa, err := s.repo.LatestSentiment(ctx, p.PatientID); err != nil {
		logger.Warn().Err(err).Msg("sentiment unavailable")
	} else if sa != nil {
		view.Sentiment = textutil.SentimentLevel(sa.Rating)
		view.SentimentRating = textutil.NormalizeRating(sa.Rating)
	}
	if view.Sentiment == "" {
		view.Sentiment = textutil.SentimentFromText(view.PrivateNotes)
	}

	if rs, err := s.repo.LatestResearchSummary(ctx, p.PatientID); err != nil {
		logger.Warn().Err(err).Msg("research summary unavailable")
	} else if rs != nil && len(rs.Summaries) > 0 {
		if rs.Topic != "" {
			view.ResearchTopic = rs.Topic
		}
		view.ResearchContent = append(view.ResearchContent, rs.Summaries...)
	}

	if len(view.ResearchContent) == 0 {
		papers, err := s.researchRepo.SearchPapers(ctx, p.MedicalConditions, researchSnippets)
		if err != nil {
			logger.Warn().Err(err).Msg("research snippets unavailable")
		}
		for _, paper := range papers {
			if paper.ArticleText != "" {
				view.ResearchContent = append(view.ResearchContent, textutil.Truncate(paper.ArticleText, snippetChars))
			}
		}
	}

	return view
}

// nextAppointment is thirty days after the admission date, or the raw value
// when it is not an ISO date.
func nextAppointment(admission string) string {
	t, ok := textutil.ParseDate(admission)
	if !ok {
		return admission
	}
	return t.Add(nextVisitOffset).Format("2006-01-02")
}

func emptySeries() model.WearableSeries {
	return model.WearableSeries{Timestamps: []string{}, HeartRate: []int{}, StepCount: []int{}}
}

// toSeries reverses newest-first readings into a chronological series.
func toSeries(readings []*model.WearableReading) model.WearableSeries {
	series := emptySeries()
	for i := len(readings) - 1; i >= 0; i-- {
		r := readings[i]
		series.Timestamps = append(series.Timestamps, r.Timestamp.UTC().Format(time.RFC3339))
		series.HeartRate = append(series.HeartRate, int(r.HeartRate))
		series.StepCount = append(series.StepCount, int(r.StepCount))
	}
	return series
}
