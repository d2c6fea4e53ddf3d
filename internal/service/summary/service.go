// Package summary writes the one-paragraph clinical summaries shown on the
// dashboard cards: condition overviews, wearable trends, doctor notes and
// pre-visit questionnaires.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/service/questionnaire"
	"github.com/patientiq/dashboard-api/internal/service/wearable"
	"github.com/patientiq/dashboard-api/internal/textutil"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

const (
	DefaultDays     = 30
	MaxDays         = 60
	DefaultMaxNotes = 20
	MaxNotes        = 50

	noteChars   = 800
	temperature = 0.2
)

type Service struct {
	patients       repository.PatientRepository
	wearables      repository.WearableRepository
	notes          repository.NoteRepository
	summaries      repository.QuestionnaireSummaryRepository
	questionnaires questionnaire.Source
	llm            llm.Client
}

func NewService(
	patients repository.PatientRepository,
	wearables repository.WearableRepository,
	notes repository.NoteRepository,
	summaries repository.QuestionnaireSummaryRepository,
	questionnaires questionnaire.Source,
	client llm.Client,
) *Service {
	return &Service{
		patients:       patients,
		wearables:      wearables,
		notes:          notes,
		summaries:      summaries,
		questionnaires: questionnaires,
		llm:            client,
	}
}

// ConditionSummary writes a short clinical overview of a condition.
func (s *Service) ConditionSummary(ctx context.Context, condition string) (*model.ConditionSummary, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, apperrors.NewBadRequest("condition is required", nil)
	}
	log.Info().Str("condition", condition).Msg("summarizing condition")

	prompt := "Write a single-paragraph clinical overview of the condition below for a busy clinician. " +
		"Include typical presentation and high-level management considerations. " +
		"Keep it concise (under ~90 words) and end with a period. " +
		"Do not mention that you are an AI.\n\n" +
		"Condition: " + condition

	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: 260, Temperature: temperature})
	if err != nil {
		return nil, apperrors.NewBadGateway("Error summarizing condition", err)
	}
	return &model.ConditionSummary{Condition: condition, Summary: textutil.TrimToLastSentence(text)}, nil
}

// ClampDays bounds the wearable summary window.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	return min(days, MaxDays)
}

// ClampNotes bounds how many notes go into the notes summary.
func ClampNotes(n int) int {
	if n <= 0 {
		return DefaultMaxNotes
	}
	return min(n, MaxNotes)
}

// WearableSummary summarizes the last days of heart rate and steps. The
// series and its statistics are returned alongside the paragraph.
func (s *Service) WearableSummary(ctx context.Context, patientID string, days int) (*model.WearableSummary, error) {
	days = ClampDays(days)

	readings, err := s.wearables.Recent(ctx, patientID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to get wearable readings: %w", err)
	}

	series := make([]model.WearableSummaryPoint, 0, len(readings))
	heartRates := make([]float64, 0, len(readings))
	steps := make([]float64, 0, len(readings))
	for i := len(readings) - 1; i >= 0; i-- {
		r := readings[i]
		series = append(series, model.WearableSummaryPoint{
			Date:      r.Date(),
			HeartRate: int(r.HeartRate),
			Steps:     int(r.StepCount),
		})
		if r.HeartRate != 0 {
			heartRates = append(heartRates, r.HeartRate)
		}
		if r.StepCount != 0 {
			steps = append(steps, r.StepCount)
		}
	}

	result := &model.WearableSummary{
		PatientID: patientID,
		Days:      days,
		Series:    series,
		HeartRate: wearable.Stats(heartRates),
		Steps:     wearable.Stats(steps),
	}

	name := s.patientName(ctx, patientID)
	seriesJSON, _ := json.Marshal(series)
	prompt := fmt.Sprintf("You are a clinical assistant. Summarize the patient's last %d days of wearable data "+
		"(heart rate and steps) in ONE paragraph. "+
		"Identify meaningful patterns and trends with concrete examples (e.g., early period vs late period, "+
		"increasing steps over last 5 days, sustained elevation in heart rate). "+
		"Be factual and concise. Do not mention that you are an AI. End with a period.\n\n"+
		"Patient: %s\nData points: %d\nTime series JSON (chronological): %s",
		days, name, len(series), seriesJSON)

	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: 220, Temperature: temperature})
	if err == nil {
		result.Summary = textutil.TrimToLastSentence(text)
	} else {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("wearable summary fell back to statistics")
	}
	if result.Summary == "" {
		result.Summary = statsLine(name, result)
	}
	return result, nil
}

func statsLine(name string, w *model.WearableSummary) string {
	if len(w.Series) == 0 {
		return fmt.Sprintf("No wearable data was recorded for %s in the last %d days.", name, w.Days)
	}
	return fmt.Sprintf("Over %d readings in the last %d days, %s had an average heart rate of %.1f BPM "+
		"(range %.0f to %.0f) and averaged %.0f steps per day (range %.0f to %.0f).",
		len(w.Series), w.Days, name,
		w.HeartRate.Average, w.HeartRate.Min, w.HeartRate.Max,
		w.Steps.Average, w.Steps.Min, w.Steps.Max)
}

type notePromptEntry struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

// DoctorNotesSummary summarizes the most recent maxNotes doctor notes.
func (s *Service) DoctorNotesSummary(ctx context.Context, patientID string, maxNotes int) (*model.NotesSummary, error) {
	maxNotes = ClampNotes(maxNotes)

	notes, err := s.notes.ListDoctorNotes(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor notes: %w", err)
	}

	entries := make([]notePromptEntry, 0, len(notes))
	for _, n := range notes {
		date := textutil.NormalizeDate(n.VisitDate)
		if date == "" || strings.TrimSpace(n.VisitNotes) == "" {
			continue
		}
		entries = append(entries, notePromptEntry{Date: date, Content: n.VisitNotes})
	}
	count := len(entries)
	result := &model.NotesSummary{PatientID: patientID, NoteCount: count}
	if count == 0 {
		result.Summary = "No doctor notes are on file for this patient."
		return result, nil
	}

	prompted := entries[:min(count, maxNotes)]
	for i := range prompted {
		prompted[i].Content = textutil.Truncate(prompted[i].Content, noteChars)
	}

	name := s.patientName(ctx, patientID)
	notesJSON, _ := json.Marshal(prompted)
	prompt := fmt.Sprintf("You are a clinical assistant. Summarize the patient's doctor visit notes in ONE paragraph. "+
		"Focus on the most important clinical themes: key symptoms, diagnoses, treatments/med changes, "+
		"test results, plans, and follow-up. Be factual, concise, and avoid speculation. "+
		"Do not mention that you are an AI. End with a period.\n\n"+
		"Patient: %s\nTotal notes available: %d\nNotes JSON (most recent first, truncated): %s",
		name, count, notesJSON)

	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: 240, Temperature: temperature})
	if err == nil {
		result.Summary = textutil.TrimToLastSentence(text)
	} else {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("doctor notes summary fell back to visit dates")
	}
	if result.Summary == "" {
		result.Summary = fmt.Sprintf("%d doctor notes on file; the most recent visit was on %s.", count, entries[0].Date)
	}
	return result, nil
}

// QuestionnaireSummary summarizes the pre-visit questionnaire with contact
// details redacted and stores the result.
func (s *Service) QuestionnaireSummary(ctx context.Context, patientID string) (*model.QuestionnaireDigest, error) {
	q, err := s.questionnaires.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}

	name := q.Text("patient_name")
	if name == "" {
		name = patientID
	}
	completed := q.Text("date_completed")
	if completed == "" {
		completed = "unknown"
	}

	redacted, _ := json.Marshal(textutil.RedactPII(map[string]interface{}(q)))
	prompt := "You are a clinical assistant. Write ONE paragraph summarizing the patient's pre-visit questionnaire. " +
		"Capture the key symptoms, severity, functional impact, relevant exposures, and any red flags or follow-up needs. " +
		"Be factual and concise. Do not mention that you are an AI. " +
		"Do NOT include any email addresses, phone numbers, insurance numbers, emergency contacts, or other personal contact information. " +
		"End with a period.\n\n" +
		"Patient: " + name + "\n" +
		"Date completed: " + completed + "\n" +
		"Questionnaire JSON: " + string(redacted)

	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: 240, Temperature: temperature})
	if err != nil {
		return nil, apperrors.NewBadGateway("Error generating questionnaire summary", err)
	}
	summary := textutil.TrimToLastSentence(text)

	record := &model.QuestionnaireSummary{
		PatientID:       patientID,
		AppointmentDate: q.Text("date_completed"),
		Summary:         summary,
		KeyPoints:       model.StringArray{},
		RedFlags:        model.StringArray{},
		GeneratedAt:     time.Now().UTC(),
	}
	if err := s.summaries.Save(ctx, record); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("failed to store questionnaire summary")
	}

	return &model.QuestionnaireDigest{PatientID: patientID, Summary: summary}, nil
}

func (s *Service) patientName(ctx context.Context, patientID string) string {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil || p == nil || strings.TrimSpace(p.PatientName) == "" {
		return patientID
	}
	return p.PatientName
}
