package docnotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/textutil"
	"github.com/patientiq/dashboard-api/internal/vector"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
	"github.com/patientiq/dashboard-api/pkg/validator"
)

const (
	searchTopK        = 3
	promptNoteChars   = 1500
	answerMaxTokens   = 400
	answerTemperature = 0.2

	NoNotesAnswer = "No relevant doctor notes found to answer this question."
)

const systemPrompt = "You are a clinical assistant helping doctors review and understand patient notes. " +
	"Answer questions based on the provided doctor notes. " +
	"Be concise, factual, and cite which note(s) support your answer."

type Service struct {
	notes    repository.NoteRepository
	patients repository.PatientRepository
	embedder llm.Embedder
	index    vector.Index
	llm      llm.Client
	validate validator.Validator
	doctor   string
}

func NewService(
	notes repository.NoteRepository,
	patients repository.PatientRepository,
	embedder llm.Embedder,
	index vector.Index,
	client llm.Client,
	defaultDoctor string,
) *Service {
	return &Service{
		notes:    notes,
		patients: patients,
		embedder: embedder,
		index:    index,
		llm:      client,
		validate: validator.New(),
		doctor:   defaultDoctor,
	}
}

// List returns the patient's doctor notes newest first, skipping notes
// without a usable date or body.
func (s *Service) List(ctx context.Context, patientID string) (*model.NoteList, error) {
	notes, err := s.notes.ListDoctorNotes(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor notes: %w", err)
	}

	entries := make([]model.NoteEntry, 0, len(notes))
	for _, n := range notes {
		date := textutil.NormalizeDate(n.VisitDate)
		if date == "" || strings.TrimSpace(n.VisitNotes) == "" {
			continue
		}
		entries = append(entries, model.NoteEntry{ID: n.ID, Date: date, Content: n.VisitNotes})
	}
	return &model.NoteList{PatientID: patientID, Notes: entries, Count: len(entries)}, nil
}

func (s *Service) Save(ctx context.Context, req *model.SaveNoteRequest) (*model.NoteSaved, error) {
	trimmed := model.SaveNoteRequest{
		VisitDate:   strings.TrimSpace(req.VisitDate),
		DoctorName:  strings.TrimSpace(req.DoctorName),
		DoctorID:    strings.TrimSpace(req.DoctorID),
		VisitNotes:  strings.TrimSpace(req.VisitNotes),
		PatientName: strings.TrimSpace(req.PatientName),
		PatientID:   strings.TrimSpace(req.PatientID),
	}
	if err := s.validate.Validate(trimmed); err != nil {
		if missing := validator.MissingFields(err); len(missing) > 0 {
			return nil, apperrors.NewBadRequest("Missing required fields: "+strings.Join(missing, ", "), err)
		}
		return nil, apperrors.NewBadRequest(validator.Describe(err), err)
	}

	note := &model.DoctorNote{
		ID:          fmt.Sprintf("note_%s_%s_%d", trimmed.PatientID, trimmed.VisitDate, time.Now().Unix()),
		PatientID:   trimmed.PatientID,
		PatientName: trimmed.PatientName,
		DoctorID:    trimmed.DoctorID,
		DoctorName:  trimmed.DoctorName,
		VisitDate:   trimmed.VisitDate,
		VisitNotes:  req.VisitNotes,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.notes.SaveDoctorNote(ctx, note); err != nil {
		return nil, apperrors.NewInternal("Failed to save doctor note", err)
	}

	if err := s.vectorize(ctx, note); err != nil {
		log.Warn().Err(err).
			Str("note_id", note.ID).
			Str("patient_id", note.PatientID).
			Msg("failed to vectorize doctor note")
	}

	log.Info().Str("note_id", note.ID).Str("patient_id", note.PatientID).Msg("doctor note saved")
	return &model.NoteSaved{Message: "Doctor note saved successfully", NoteID: note.ID}, nil
}

func (s *Service) Delete(ctx context.Context, noteID string) (*model.NoteSaved, error) {
	deleted, err := s.notes.DeleteDoctorNote(ctx, noteID)
	if err != nil {
		log.Error().Err(err).Str("note_id", noteID).Msg("doctor note delete failed")
	}
	if err != nil || !deleted {
		return nil, apperrors.NewNotFound("Note not found or failed to delete", err)
	}

	if err := s.index.DeleteNote(ctx, noteID); err != nil && !errors.Is(err, vector.ErrDisabled) {
		log.Warn().Err(err).Str("note_id", noteID).Msg("failed to remove doctor note vector")
	}
	return &model.NoteSaved{Message: "Doctor note deleted successfully", NoteID: noteID}, nil
}

// Search answers a doctor's question from the patient's most relevant
// notes and records both the question and the answer.
func (s *Service) Search(ctx context.Context, patientID string, req *model.NotesSearchRequest) (*model.NotesSearchResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperrors.NewBadRequest("Question is required", nil)
	}

	doctor := strings.TrimSpace(req.DoctorName)
	if doctor == "" {
		doctor = s.doctor
	}
	patientName := strings.TrimSpace(req.PatientName)
	if patientName == "" {
		if p, err := s.patients.Get(ctx, patientID); err == nil && p != nil {
			patientName = strings.TrimSpace(p.PatientName)
		}
	}

	now := time.Now()
	q := &model.DoctorQuestion{
		ID:            fmt.Sprintf("dq_%d", now.UnixMilli()),
		QuestionAsked: question,
		PatientName:   patientName,
		DoctorName:    doctor,
		Timestamp:     now.UTC(),
	}
	if err := s.notes.SaveDoctorQuestion(ctx, q); err != nil {
		log.Warn().Err(err).Str("question_id", q.ID).Msg("failed to save doctor question")
	}

	hits := s.findNotes(ctx, patientID, question)
	if hits == nil {
		hits = []model.NoteHit{}
	}
	answer := fillPlaceholders(s.answer(ctx, question, hits), patientName, doctor)

	ids := make(model.StringArray, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	a := &model.DoctorAnswer{
		ID:                   fmt.Sprintf("ad_%d", time.Now().UnixMilli()),
		QuestionID:           q.ID,
		QuestionAsked:        question,
		AnswerProvided:       answer,
		PatientName:          patientName,
		DoctorName:           doctor,
		ReferencedVisitNotes: ids,
		Timestamp:            now.UTC(),
	}
	if err := s.notes.SaveDoctorAnswer(ctx, a); err != nil {
		log.Warn().Err(err).Str("answer_id", a.ID).Msg("failed to save doctor answer")
	}

	log.Info().
		Str("patient_id", patientID).
		Int("notes", len(hits)).
		Int("answer_len", len(answer)).
		Msg("doctor notes searched")

	return &model.NotesSearchResult{
		PatientID:            patientID,
		PatientName:          patientName,
		Question:             question,
		Notes:                hits,
		Answer:               answer,
		ReferencedVisitNotes: hits,
	}, nil
}

// Backfill claims up to limit stored notes that have no vector and indexes
// them. It reports how many were indexed and how many were claimed.
func (s *Service) Backfill(ctx context.Context, limit int) (indexed, scanned int, err error) {
	notes, err := s.notes.ClaimUnvectorizedNotes(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to claim unvectorized notes: %w", err)
	}

	for _, n := range notes {
		if err := s.vectorize(ctx, n); err != nil {
			log.Warn().Err(err).Str("note_id", n.ID).Msg("skipping doctor note")
			continue
		}
		indexed++
	}
	return indexed, len(notes), nil
}

func (s *Service) vectorize(ctx context.Context, note *model.DoctorNote) error {
	vec, err := s.embedder.Embed(ctx, note.VisitNotes)
	if err != nil {
		return fmt.Errorf("failed to embed note: %w", err)
	}
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding for note %s", note.ID)
	}
	if err := s.index.UpsertNote(ctx, note, vec); err != nil {
		return fmt.Errorf("failed to index note: %w", err)
	}
	if err := s.notes.MarkNoteVectorized(ctx, note.ID); err != nil {
		return fmt.Errorf("failed to mark note vectorized: %w", err)
	}
	return nil
}

// findNotes prefers the vector index and falls back to a substring match
// over the patient's notes.
func (s *Service) findNotes(ctx context.Context, patientID, question string) []model.NoteHit {
	vec, err := s.embedder.Embed(ctx, question)
	if err == nil && len(vec) > 0 {
		hits, err := s.index.SearchNotes(ctx, vec, patientID, searchTopK)
		if err == nil {
			return hits
		}
		log.Warn().Err(err).Str("patient_id", patientID).Msg("note vector search failed, using keyword search")
	} else if err != nil {
		log.Warn().Err(err).Msg("question embedding failed, using keyword search")
	}

	notes, err := s.notes.KeywordSearchNotes(ctx, patientID, question, searchTopK)
	if err != nil {
		log.Error().Err(err).Str("patient_id", patientID).Msg("note keyword search failed")
		return []model.NoteHit{}
	}
	hits := make([]model.NoteHit, 0, len(notes))
	for _, n := range notes {
		hits = append(hits, model.NoteHit{
			ID:          n.ID,
			PatientID:   n.PatientID,
			PatientName: n.PatientName,
			VisitDate:   n.VisitDate,
			VisitNotes:  n.VisitNotes,
		})
	}
	return hits
}

func (s *Service) answer(ctx context.Context, question string, hits []model.NoteHit) string {
	if len(hits) == 0 {
		return NoNotesAnswer
	}

	blocks := make([]string, 0, len(hits))
	for i, h := range hits {
		blocks = append(blocks, fmt.Sprintf("Note %d (Date: %s, Patient: %s):\n%s",
			i+1, orUnknown(h.VisitDate), orUnknown(h.PatientID), textutil.Truncate(h.VisitNotes, promptNoteChars)))
	}
	prompt := fmt.Sprintf("Question: %s\n\nRelevant Doctor Notes:\n%s\n\n"+
		"Please provide a clear, concise answer based on these notes. "+
		"Reference specific notes when applicable (e.g., 'Note 1 indicates...').",
		question, strings.Join(blocks, "\n\n"))

	text, err := s.llm.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err == nil {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	} else {
		log.Warn().Err(err).Msg("notes answer fell back to note dates")
	}

	dates := make([]string, 0, len(hits))
	for _, h := range hits {
		dates = append(dates, orUnknown(h.VisitDate))
	}
	return fmt.Sprintf("The notes assistant is unavailable. The most relevant notes are from %s.", strings.Join(dates, ", "))
}

// fillPlaceholders swaps template names the model sometimes emits for the
// real patient and doctor.
func fillPlaceholders(answer, patientName, doctor string) string {
	if patientName != "" {
		answer = strings.ReplaceAll(answer, "[patient_name]", patientName)
		if !strings.EqualFold(patientName, "john doe") {
			answer = strings.ReplaceAll(answer, "John Doe", patientName)
		}
	}
	if doctor != "" {
		answer = strings.ReplaceAll(answer, "[doctor_name]", doctor)
	}
	return answer
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Unknown"
	}
	return s
}
