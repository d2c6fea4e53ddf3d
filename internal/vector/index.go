// Package vector stores embeddings of research papers and doctor notes and
// answers nearest-neighbour queries over them.
package vector

import (
	"context"
	"errors"

	"github.com/patientiq/dashboard-api/internal/model"
)

// MaxResults caps every search.
const MaxResults = 10

var ErrDisabled = errors.New("vector index is not configured")

type Index interface {
	EnsureSchema(ctx context.Context) error
	UpsertPapers(ctx context.Context, papers []*model.ResearchPaper, vectors [][]float32) error
	UpsertNote(ctx context.Context, note *model.DoctorNote, vector []float32) error
	DeleteNote(ctx context.Context, noteID string) error
	SearchPapers(ctx context.Context, vector []float32, k int) ([]model.Paper, error)
	// SearchNotes restricts hits to patientID when it is not empty.
	SearchNotes(ctx context.Context, vector []float32, patientID string, k int) ([]model.NoteHit, error)
}

// Disabled is the Index used when no vector store is configured; every
// call fails with ErrDisabled so callers take their keyword fallback.
type Disabled struct{}

func (Disabled) EnsureSchema(context.Context) error { return nil }
func (Disabled) UpsertPapers(context.Context, []*model.ResearchPaper, [][]float32) error {
	return ErrDisabled
}
func (Disabled) UpsertNote(context.Context, *model.DoctorNote, []float32) error { return ErrDisabled }
func (Disabled) DeleteNote(context.Context, string) error                     { return ErrDisabled }
func (Disabled) SearchPapers(context.Context, []float32, int) ([]model.Paper, error) {
	return nil, ErrDisabled
}
func (Disabled) SearchNotes(context.Context, []float32, string, int) ([]model.NoteHit, error) {
	return nil, ErrDisabled
}

func clampK(k int) int {
	if k <= 0 {
		return 1
	}
	if k > MaxResults {
		return MaxResults
	}
	return k
}
