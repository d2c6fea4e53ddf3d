package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/textutil"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

const (
	previsitMaxTokens = 700
	noteSummaryChars  = 300
)

// Store is a Source that can also report completion status without
// failing on unreadable files.
type Store interface {
	Source
	Status(patientID string) model.QuestionnaireStatus
}

type Service struct {
	store    Store
	patients repository.PatientRepository
	notes    repository.NoteRepository
	llm      llm.Client
}

func NewService(store Store, patients repository.PatientRepository, notes repository.NoteRepository, client llm.Client) *Service {
	return &Service{store: store, patients: patients, notes: notes, llm: client}
}

func (s *Service) Get(ctx context.Context, patientID string) (model.Questionnaire, error) {
	return s.store.Load(ctx, patientID)
}

// Statuses checks each id in the request. patient_ids must be a JSON list;
// its elements are used in their string form.
func (s *Service) Statuses(ctx context.Context, req *model.QuestionnaireStatusRequest) (*model.QuestionnaireStatuses, error) {
	ids, ok := req.PatientIDs.([]interface{})
	if !ok {
		return nil, apperrors.NewBadRequest("patient_ids must be a list", nil)
	}

	out := &model.QuestionnaireStatuses{Statuses: make([]model.QuestionnaireStatus, 0, len(ids))}
	for _, raw := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Statuses = append(out.Statuses, s.store.Status(fmt.Sprint(raw)))
	}
	return out, nil
}

type previsitReply struct {
	PatientName        string            `json:"patient_name"`
	ClinicalSummary    string            `json:"clinical_summary"`
	CurrentMedications []json.RawMessage `json:"current_medications"`
	Allergies          *model.Allergies  `json:"allergies"`
	KeySymptoms        []string          `json:"key_symptoms"`
	PatientConcerns    []string          `json:"patient_concerns"`
	RecentNoteSummary  string            `json:"recent_note_summary"`
}

// PrevisitSummary builds the structured brief a clinician reads before a
// visit from the patient record, the questionnaire and the latest doctor
// note. When the model reply is unusable the fields are derived from the
// questionnaire directly.
func (s *Service) PrevisitSummary(ctx context.Context, patientID string) (*model.PrevisitSummary, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("Patient %s not found", patientID), err)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	q, err := s.store.Load(ctx, patientID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			log.Warn().Err(err).Str("patient_id", patientID).Msg("questionnaire unreadable for pre-visit summary")
		}
		q = model.Questionnaire{}
	}

	note, err := s.notes.LatestDoctorNote(ctx, patientID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("patient_id", patientID).Msg("latest doctor note unavailable")
		}
		note = nil
	}

	fallback := derive(p, q, note)

	reply, err := s.llm.Complete(ctx, llm.Request{
		System:    "You prepare concise pre-visit briefs for physicians. Reply with JSON only.",
		Prompt:    previsitPrompt(p, q, note),
		MaxTokens: previsitMaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("pre-visit summary derived from questionnaire")
		return fallback, nil
	}

	var parsed previsitReply
	if err := llm.ExtractJSON(reply, &parsed); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("pre-visit summary reply was not JSON")
		return fallback, nil
	}
	return merge(fallback, parsed), nil
}

func previsitPrompt(p *model.Patient, q model.Questionnaire, note *model.DoctorNote) string {
	profile, _ := json.Marshal(textutil.RedactPII(p.Document()))
	questionnaire, _ := json.Marshal(textutil.RedactPII(map[string]interface{}(q)))
	latest := "none on file"
	if note != nil {
		latest = fmt.Sprintf("%s (%s): %s", textutil.NormalizeDate(note.VisitDate), note.DoctorName, note.VisitNotes)
	}

	return "Prepare a pre-visit summary for the physician from the data below. " +
		"Use only facts present in the data. Do not include contact details or insurance numbers.\n\n" +
		"Return a JSON object with exactly these keys: " +
		`"patient_name" (string), "clinical_summary" (2-3 sentences), ` +
		`"current_medications" (list of {"name","dosage","frequency"}), ` +
		`"allergies" ({"drug":[],"food":[],"environmental":[]}), ` +
		`"key_symptoms" (list of strings), "patient_concerns" (list of strings), ` +
		`"recent_note_summary" (one sentence).` + "\n\n" +
		"Patient profile JSON: " + string(profile) + "\n" +
		"Pre-visit questionnaire JSON: " + string(questionnaire) + "\n" +
		"Most recent doctor note: " + latest
}

// merge overlays the model's answer on the derived summary, keeping derived
// values where the model left a field empty.
func merge(base *model.PrevisitSummary, r previsitReply) *model.PrevisitSummary {
	out := *base
	if v := strings.TrimSpace(r.PatientName); v != "" {
		out.PatientName = v
	}
	if v := strings.TrimSpace(r.ClinicalSummary); v != "" {
		out.ClinicalSummary = v
	}
	if meds := parseMedications(r.CurrentMedications); len(meds) > 0 {
		out.CurrentMedications = meds
	}
	if r.Allergies != nil {
		out.Allergies = model.Allergies{
			Drug:          nonNil(r.Allergies.Drug),
			Food:          nonNil(r.Allergies.Food),
			Environmental: nonNil(r.Allergies.Environmental),
		}
	}
	if len(r.KeySymptoms) > 0 {
		out.KeySymptoms = r.KeySymptoms
	}
	if len(r.PatientConcerns) > 0 {
		out.PatientConcerns = r.PatientConcerns
	}
	if v := strings.TrimSpace(r.RecentNoteSummary); v != "" {
		out.RecentNoteSummary = v
	}
	return &out
}

// parseMedications accepts medication objects or plain names.
func parseMedications(raw []json.RawMessage) []model.Medication {
	var meds []model.Medication
	for _, item := range raw {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			if name = strings.TrimSpace(name); name != "" {
				meds = append(meds, model.Medication{Name: name})
			}
			continue
		}
		var m model.Medication
		if err := json.Unmarshal(item, &m); err == nil && strings.TrimSpace(m.Name) != "" {
			meds = append(meds, m)
		}
	}
	return meds
}

// derive builds the summary from the stored data alone.
func derive(p *model.Patient, q model.Questionnaire, note *model.DoctorNote) *model.PrevisitSummary {
	name := p.PatientName
	if name == "" {
		name = q.Text("patient_name")
	}
	if name == "" {
		name = "Unknown"
	}

	out := &model.PrevisitSummary{
		PatientID:          p.PatientID,
		PatientName:        name,
		CurrentMedications: []model.Medication{},
		Allergies:          model.Allergies{Drug: []string{}, Food: []string{}, Environmental: []string{}},
		KeySymptoms:        collect(q, "symptom", "complaint"),
		PatientConcerns:    collect(q, "concern", "question", "goal"),
	}
	for _, m := range collect(q, "medication") {
		out.CurrentMedications = append(out.CurrentMedications, model.Medication{Name: m})
	}
	for key, v := range q {
		k := strings.ToLower(key)
		if !strings.Contains(k, "allerg") {
			continue
		}
		if group, ok := v.(map[string]interface{}); ok {
			out.Allergies.Drug = append(out.Allergies.Drug, flatten(group["drug"])...)
			out.Allergies.Food = append(out.Allergies.Food, flatten(group["food"])...)
			out.Allergies.Environmental = append(out.Allergies.Environmental, flatten(group["environmental"])...)
			continue
		}
		switch {
		case strings.Contains(k, "food"):
			out.Allergies.Food = append(out.Allergies.Food, flatten(v)...)
		case strings.Contains(k, "environment"), strings.Contains(k, "seasonal"):
			out.Allergies.Environmental = append(out.Allergies.Environmental, flatten(v)...)
		default:
			out.Allergies.Drug = append(out.Allergies.Drug, flatten(v)...)
		}
	}

	summary := name
	if p.Age > 0 {
		summary += fmt.Sprintf(", %d", p.Age)
	}
	if p.Gender != "" {
		summary += ", " + p.Gender
	}
	if p.MedicalConditions != "" {
		summary += ", followed for " + p.MedicalConditions
	}
	summary += "."
	if date := q.Text("date_completed"); date != "" {
		summary += " Pre-visit questionnaire completed " + date + "."
	}
	if len(out.KeySymptoms) > 0 {
		summary += " Reports " + strings.Join(out.KeySymptoms, "; ") + "."
	}
	out.ClinicalSummary = summary

	if note != nil {
		out.RecentNoteSummary = textutil.Truncate(textutil.CollapseSpace(note.VisitNotes), noteSummaryChars)
	}
	return out
}

// collect flattens the values of every key containing one of the fragments,
// in key order.
func collect(q model.Questionnaire, fragments ...string) []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []string{}
	for _, k := range keys {
		lower := strings.ToLower(k)
		for _, f := range fragments {
			if strings.Contains(lower, f) {
				out = append(out, flatten(q[k])...)
				break
			}
		}
	}
	return out
}

func flatten(v interface{}) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" && !strings.EqualFold(s, "none") {
			return []string{s}
		}
		return nil
	case []interface{}:
		var out []string
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]interface{}:
		if name, ok := t["name"]; ok {
			return flatten(name)
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flatten(t[k])...)
		}
		return out
	case bool:
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
