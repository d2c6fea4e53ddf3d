package wearable

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/service/patient"
	"github.com/patientiq/dashboard-api/pkg/messaging"
	"github.com/patientiq/dashboard-api/pkg/metrics"
)

const (
	AnalysisDays    = 30
	DefaultQuestion = "Summarize this patient's wearable trends and alerts."

	researchTopK      = 3
	narrativeTokens   = 300
	narrativeTemp     = 0
	contextAlertLines = 2
)

// PaperFinder retrieves research papers for a free-text query.
type PaperFinder interface {
	FindPapers(ctx context.Context, condition, query string, k int) ([]model.Paper, error)
}

type Service struct {
	patients  repository.PatientRepository
	wearables repository.WearableRepository
	alerts    repository.AlertRepository
	papers    PaperFinder
	llm       llm.Client
	metrics   *metrics.Metrics
}

func NewService(
	patients repository.PatientRepository,
	wearables repository.WearableRepository,
	alerts repository.AlertRepository,
	papers PaperFinder,
	client llm.Client,
	m *metrics.Metrics,
) *Service {
	return &Service{
		patients:  patients,
		wearables: wearables,
		alerts:    alerts,
		papers:    papers,
		llm:       client,
		metrics:   m,
	}
}

// Analyze runs the full wearable pipeline for one patient: trends and
// alerts, cohort comparison, supporting research and a short narrative
// answering question. Alerts are stored and critical or high ones are
// queued for broadcast.
func (s *Service) Analyze(ctx context.Context, patientID, question string) (*model.WearableAnalysisResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		question = DefaultQuestion
	}

	p, err := patient.Load(ctx, s.patients, patientID)
	if err != nil {
		return nil, err
	}
	condition := p.MedicalConditions

	readings, err := s.chronological(ctx, patientID)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("wearable readings unavailable")
	}

	analysis := Analyze(readings, condition)
	similar := s.similar(ctx, p)
	comparison := Compare(analysis, similar, len(readings), condition)
	papers := s.research(ctx, condition, analysis.Alerts)
	recs := recommendations(analysis, condition)
	qType := QuestionType(question)

	result := &model.WearableAnalysisResult{
		PatientID:         p.PatientID,
		PatientName:       p.PatientName,
		PatientCondition:  condition,
		Question:          question,
		QuestionType:      qType,
		Alerts:            analysis.Alerts,
		Trends:            analysis.Trends,
		Summary:           analysis.Summary,
		Recommendations:   recs,
		SimilarPatients:   similar,
		PatientComparison: comparison,
		ResearchPapers:    papers,
		DataPoints:        len(readings),
	}
	result.Answer = s.narrate(ctx, p, question, qType, len(readings), analysis, comparison, recs)

	if _, err := s.persist(ctx, p, analysis.Alerts); err != nil {
		log.Error().Err(err).Str("patient_id", patientID).Msg("failed to store wearable alerts")
	}

	log.Info().
		Str("patient_id", patientID).
		Str("question_type", qType).
		Int("alerts", len(analysis.Alerts)).
		Int("cohort", len(similar)).
		Int("papers", len(papers)).
		Str("outlier_status", comparison.OutlierStatus).
		Msg("wearable analysis complete")
	return result, nil
}

// Alerts lists the patient's stored alerts, newest first.
func (s *Service) Alerts(ctx context.Context, patientID string) (*model.AlertList, error) {
	alerts, err := s.alerts.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	if alerts == nil {
		alerts = []*model.WearableAlert{}
	}
	return &model.AlertList{PatientID: patientID, Alerts: alerts, Count: len(alerts)}, nil
}

// Scan analyzes every patient and stores the alerts raised. It returns the
// stored alerts so callers can notify on them.
func (s *Service) Scan(ctx context.Context) ([]*model.WearableAlert, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	var raised []*model.WearableAlert
	for _, p := range patients {
		if err := ctx.Err(); err != nil {
			return raised, err
		}
		readings, err := s.chronological(ctx, p.PatientID)
		if err != nil {
			log.Warn().Err(err).Str("patient_id", p.PatientID).Msg("skipping patient in alert scan")
			continue
		}
		analysis := Analyze(readings, p.MedicalConditions)
		stored, err := s.persist(ctx, p, analysis.Alerts)
		if err != nil {
			return raised, err
		}
		raised = append(raised, stored...)
	}
	return raised, nil
}

func (s *Service) chronological(ctx context.Context, patientID string) ([]*model.WearableReading, error) {
	readings, err := s.wearables.Recent(ctx, patientID, AnalysisDays)
	if err != nil {
		return nil, fmt.Errorf("failed to get wearable readings: %w", err)
	}
	for i, j := 0, len(readings)-1; i < j; i, j = i+1, j-1 {
		readings[i], readings[j] = readings[j], readings[i]
	}
	return readings, nil
}

func (s *Service) similar(ctx context.Context, p *model.Patient) []model.SimilarPatient {
	candidates, err := s.patients.FindSimilar(ctx, p.PatientID, p.Age, CohortAgeRange, p.Gender, p.MedicalConditions, CohortLimit)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", p.PatientID).Msg("cohort lookup failed")
		return []model.SimilarPatient{}
	}
	return ScoreCohort(p, candidates, CohortAgeRange)
}

// research looks up papers for the top three alerts.
func (s *Service) research(ctx context.Context, condition string, alerts []model.AlertFinding) []model.Paper {
	if len(alerts) == 0 {
		return []model.Paper{}
	}
	parts := make([]string, 0, 3)
	for _, a := range alerts[:min(len(alerts), 3)] {
		parts = append(parts, strings.ReplaceAll(a.Metric, "_", " ")+": "+a.Message)
	}
	papers, err := s.papers.FindPapers(ctx, condition, strings.Join(parts, "; "), researchTopK)
	if err != nil {
		log.Warn().Err(err).Msg("research lookup for alerts failed")
		return []model.Paper{}
	}
	if papers == nil {
		papers = []model.Paper{}
	}
	return papers
}

func recommendations(analysis model.WearableAnalysis, condition string) []string {
	recs := append([]string{}, analysis.Recommendations...)
	if len(analysis.Alerts) > 0 && len(recs) == 0 {
		for _, a := range analysis.Alerts[:min(len(analysis.Alerts), 3)] {
			switch a.Severity {
			case model.PriorityCritical:
				recs = append(recs, fmt.Sprintf("Immediate medical review recommended for %s levels in %s", a.Metric, condition))
			case model.PriorityHigh:
				recs = append(recs, fmt.Sprintf("Schedule follow-up appointment to address %s concerns", a.Metric))
			}
		}
	}
	if len(recs) == 0 {
		recs = []string{
			"Continue monitoring wearable data for " + condition,
			"Maintain regular follow-up schedule",
		}
	}
	return recs
}

var questionKeywords = []struct {
	kind  string
	words []string
}{
	{"comparison", []string{"compare", "similar", "other patients", "cohort", "different from"}},
	{"research", []string{"research", "papers", "studies", "literature", "evidence"}},
	{"recommendations", []string{"recommend", "suggestion", "what should", "advice"}},
	{"alerts", []string{"alert", "critical", "urgent", "issue", "problem"}},
	{"trends", []string{"trend", "pattern", "over time", "change"}},
}

var focusInstructions = map[string]string{
	"comparison":      "Focus your response on how this patient compares to similar patients. Highlight any significant deviations or similarities.",
	"research":        "Focus on clinical evidence and research-backed recommendations. Reference standard guidelines for this condition.",
	"recommendations": "Focus on actionable clinical recommendations. Prioritize by urgency and clinical significance.",
	"alerts":          "Focus on critical alerts and urgent issues requiring immediate attention. Be direct about severity.",
	"trends":          "Focus on patterns and trends over the 30-day period. Describe changes and trajectories.",
	"general":         "Provide a balanced overview covering key findings, alerts, and recommendations.",
}

// QuestionType classifies a question by the first keyword group it matches.
func QuestionType(question string) string {
	q := strings.ToLower(question)
	for _, group := range questionKeywords {
		for _, w := range group.words {
			if strings.Contains(q, w) {
				return group.kind
			}
		}
	}
	return "general"
}

func (s *Service) narrate(
	ctx context.Context,
	p *model.Patient,
	question, qType string,
	dataPoints int,
	analysis model.WearableAnalysis,
	cmp model.CohortComparison,
	recs []string,
) string {
	lines := []string{
		fmt.Sprintf("Patient: %s, Condition: %s", p.PatientName, p.MedicalConditions),
		fmt.Sprintf("Data: %d wearable readings over %d days", dataPoints, AnalysisDays),
	}

	counts := analysis.AlertCounts
	switch {
	case counts.Critical > 0:
		added := 0
		for _, a := range analysis.Alerts {
			if a.Severity == model.PriorityCritical && added < contextAlertLines {
				lines = append(lines, "CRITICAL ALERT: "+a.Message)
				added++
			}
		}
	case counts.High > 0:
		lines = append(lines, fmt.Sprintf("%d high-priority alert(s) detected", counts.High))
	default:
		lines = append(lines, "No critical alerts - metrics within acceptable ranges")
	}

	if qType == "comparison" || cmp.OutlierStatus == outlierCritical || cmp.OutlierStatus == outlierConcerning {
		lines = append(lines, "Cohort comparison: "+cmp.Summary)
		for _, point := range cmp.ComparisonPoints[:min(len(cmp.ComparisonPoints), 2)] {
			lines = append(lines, "  - "+point)
		}
	}
	if (qType == "recommendations" || qType == "research") && len(recs) > 0 {
		lines = append(lines, fmt.Sprintf("Clinical recommendations (%d):", len(recs)))
		for _, r := range recs[:min(len(recs), 3)] {
			lines = append(lines, "  - "+r)
		}
	}

	prompt := fmt.Sprintf("You are a clinical assistant analyzing wearable health data.\n\n"+
		"User's Question: %q\nQuestion Type: %s\n\nAnalysis Context:\n%s\n\nInstructions: %s\n\n"+
		"Generate a concise, professional summary (2-4 sentences) that directly answers the user's question. "+
		"Be clear, specific, and clinically appropriate. Use markdown formatting for emphasis where appropriate "+
		"(**bold** for critical items, ⚠️ for warnings).",
		question, qType, strings.Join(lines, "\n"), focusInstructions[qType])

	text, err := s.llm.Complete(ctx, llm.Request{Prompt: prompt, MaxTokens: narrativeTokens, Temperature: narrativeTemp})
	if err == nil {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	} else {
		log.Warn().Err(err).Str("patient_id", p.PatientID).Msg("wearable narrative fell back to alert counts")
	}
	return fallbackNarrative(p, counts)
}

func fallbackNarrative(p *model.Patient, counts model.AlertCounts) string {
	head := fmt.Sprintf("Analysis for %s (%s): ", p.PatientName, p.MedicalConditions)
	switch {
	case counts.Critical > 0:
		return head + fmt.Sprintf("⚠️ **%d CRITICAL alert(s)** detected requiring immediate attention.", counts.Critical)
	case counts.High > 0:
		return head + fmt.Sprintf("**%d high-priority alert(s)** identified.", counts.High)
	default:
		return head + "No critical alerts detected. Metrics within acceptable ranges."
	}
}

// persist stores findings as alerts in one transaction with an outbox event
// for each critical or high alert.
func (s *Service) persist(ctx context.Context, p *model.Patient, findings []model.AlertFinding) ([]*model.WearableAlert, error) {
	if len(findings) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	alerts := make([]*model.WearableAlert, 0, len(findings))
	var events []*model.OutboxEvent
	for _, f := range findings {
		snapshot := model.JSONMap{"values": f.Values, "priority": f.Priority}
		if f.Threshold != nil {
			snapshot["threshold"] = *f.Threshold
		}
		a := &model.WearableAlert{
			ID:           uuid.NewString(),
			PatientID:    p.PatientID,
			Priority:     f.Severity,
			Metric:       f.Metric,
			Message:      f.Message,
			Significance: f.Significance,
			Snapshot:     snapshot,
			CreatedAt:    now,
		}
		alerts = append(alerts, a)

		if f.Severity != model.PriorityCritical && f.Severity != model.PriorityHigh {
			continue
		}
		payload, err := json.Marshal(model.AlertEvent{
			Type:        model.EventWearableAlert,
			AlertID:     a.ID,
			PatientID:   p.PatientID,
			PatientName: p.PatientName,
			Priority:    a.Priority,
			Metric:      a.Metric,
			Message:     a.Message,
			RaisedAt:    now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode alert event: %w", err)
		}
		events = append(events, &model.OutboxEvent{
			ID:        uuid.New(),
			EventType: model.EventWearableAlert,
			Channel:   messaging.AlertChannel,
			Payload:   payload,
			Status:    model.OutboxStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.alerts.SaveWithEvents(ctx, alerts, events); err != nil {
		return nil, fmt.Errorf("failed to save alerts: %w", err)
	}
	if s.metrics != nil {
		for _, a := range alerts {
			s.metrics.AlertsRaised.WithLabelValues(string(a.Priority)).Inc()
		}
	}
	return alerts, nil
}
