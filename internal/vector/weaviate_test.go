package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patientiq/dashboard-api/internal/model"
)

func TestObjectIDIsStable(t *testing.T) {
	a := objectID("note_P1_2024-01-01_1700000000")
	b := objectID("note_P1_2024-01-01_1700000000")
	c := objectID("note_P2_2024-01-01_1700000000")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a.String(), 36)
}

func TestClampK(t *testing.T) {
	assert.Equal(t, 1, clampK(0))
	assert.Equal(t, 5, clampK(5))
	assert.Equal(t, MaxResults, clampK(50))
}

func TestDistanceParsing(t *testing.T) {
	row := map[string]interface{}{
		"title":       "COPD outcomes",
		"_additional": map[string]interface{}{"distance": 0.12, "id": "x"},
	}
	d := distance(row)
	if assert.NotNil(t, d) {
		assert.InDelta(t, 0.12, *d, 1e-9)
	}
	assert.Equal(t, "COPD outcomes", str(row, "title"))
	assert.Equal(t, "", str(row, "missing"))
	assert.Nil(t, distance(map[string]interface{}{}))
}

func TestDisabledIndex(t *testing.T) {
	var idx Index = Disabled{}
	ctx := context.Background()

	assert.NoError(t, idx.EnsureSchema(ctx))
	_, err := idx.SearchPapers(ctx, []float32{1}, 3)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.ErrorIs(t, idx.UpsertNote(ctx, &model.DoctorNote{ID: "n"}, []float32{1}), ErrDisabled)
}

func TestUpsertPapersLengthMismatch(t *testing.T) {
	w := &WeaviateIndex{}
	err := w.UpsertPapers(context.Background(), []*model.ResearchPaper{{ID: "p"}}, nil)
	assert.Error(t, err)
}
