package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/internal/model"
)

const (
	PaperClass = "ResearchPaper"
	NoteClass  = "DoctorNote"

	batchSize = 100
)

var (
	paperClass = &models.Class{
		Class:       PaperClass,
		Description: "Pulmonary research articles",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "paper_id", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "author", DataType: []string{"text"}},
			{Name: "article_citation", DataType: []string{"text"}},
			{Name: "pmc_link", DataType: []string{"text"}},
			{Name: "article_text", DataType: []string{"text"}},
		},
		VectorIndexType:   "hnsw",
		VectorIndexConfig: map[string]interface{}{"distance": "cosine"},
	}

	noteClass = &models.Class{
		Class:       NoteClass,
		Description: "Clinician visit notes",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "note_id", DataType: []string{"text"}},
			{Name: "patient_id", DataType: []string{"text"}},
			{Name: "patient_name", DataType: []string{"text"}},
			{Name: "visit_date", DataType: []string{"text"}},
			{Name: "visit_notes", DataType: []string{"text"}},
		},
		VectorIndexType:   "hnsw",
		VectorIndexConfig: map[string]interface{}{"distance": "l2-squared"},
	}
)

type WeaviateIndex struct {
	client *weaviate.Client
}

func NewWeaviateIndex(cfg config.WeaviateConfig) (*WeaviateIndex, error) {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := strings.TrimPrefix(strings.TrimPrefix(cfg.Host, "https://"), "http://")

	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateIndex{client: client}, nil
}

// PingContext reports whether the weaviate node is ready.
func (w *WeaviateIndex) PingContext(ctx context.Context) error {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach weaviate: %w", err)
	}
	if !ready {
		return fmt.Errorf("weaviate is not ready")
	}
	return nil
}

// EnsureSchema creates whichever of the two classes is missing.
func (w *WeaviateIndex) EnsureSchema(ctx context.Context) error {
	schema, err := w.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	existing := make(map[string]bool, len(schema.Classes))
	for _, c := range schema.Classes {
		existing[c.Class] = true
	}
	for _, class := range []*models.Class{paperClass, noteClass} {
		if existing[class.Class] {
			continue
		}
		if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("failed to create %s class: %w", class.Class, err)
		}
		log.Info().Str("class", class.Class).Msg("created vector class")
	}
	return nil
}

// objectID derives a stable object id so re-indexing overwrites.
func objectID(id string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

func (w *WeaviateIndex) UpsertPapers(ctx context.Context, papers []*model.ResearchPaper, vectors [][]float32) error {
	if len(papers) != len(vectors) {
		return fmt.Errorf("papers and vectors differ in length: %d != %d", len(papers), len(vectors))
	}

	objects := make([]*models.Object, 0, len(papers))
	for i, p := range papers {
		objects = append(objects, &models.Object{
			Class: PaperClass,
			ID:    objectID(p.ID),
			Properties: map[string]interface{}{
				"paper_id":         p.ID,
				"title":            p.Title,
				"author":           p.Author,
				"article_citation": p.ArticleCitation,
				"pmc_link":         p.PMCLink,
				"article_text":     p.ArticleText,
			},
			Vector: vectors[i],
		})
	}
	return w.batch(ctx, objects)
}

func (w *WeaviateIndex) UpsertNote(ctx context.Context, note *model.DoctorNote, vector []float32) error {
	return w.batch(ctx, []*models.Object{{
		Class: NoteClass,
		ID:    objectID(note.ID),
		Properties: map[string]interface{}{
			"note_id":      note.ID,
			"patient_id":   note.PatientID,
			"patient_name": note.PatientName,
			"visit_date":   note.VisitDate,
			"visit_notes":  note.VisitNotes,
		},
		Vector: vector,
	}})
}

func (w *WeaviateIndex) batch(ctx context.Context, objects []*models.Object) error {
	for i := 0; i < len(objects); i += batchSize {
		end := i + batchSize
		if end > len(objects) {
			end = len(objects)
		}

		resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objects[i:end]...).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
		for _, r := range resp {
			if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
				return fmt.Errorf("failed to upsert object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
			}
		}
	}
	return nil
}

func (w *WeaviateIndex) DeleteNote(ctx context.Context, noteID string) error {
	return w.client.Data().Deleter().
		WithClassName(NoteClass).
		WithID(objectID(noteID).String()).
		Do(ctx)
}

func (w *WeaviateIndex) SearchPapers(ctx context.Context, vector []float32, k int) ([]model.Paper, error) {
	rows, err := w.search(ctx, PaperClass, vector, nil, k,
		"paper_id", "title", "author", "article_citation", "pmc_link", "article_text")
	if err != nil {
		return nil, err
	}

	papers := make([]model.Paper, 0, len(rows))
	for _, r := range rows {
		papers = append(papers, model.Paper{
			Title:           str(r, "title"),
			Author:          str(r, "author"),
			ArticleText:     str(r, "article_text"),
			ArticleCitation: str(r, "article_citation"),
			PMCLink:         str(r, "pmc_link"),
			Distance:        distance(r),
		})
	}
	return papers, nil
}

func (w *WeaviateIndex) SearchNotes(ctx context.Context, vector []float32, patientID string, k int) ([]model.NoteHit, error) {
	var where *filters.WhereBuilder
	if patientID != "" {
		where = filters.Where().
			WithPath([]string{"patient_id"}).
			WithOperator(filters.Equal).
			WithValueText(patientID)
	}

	rows, err := w.search(ctx, NoteClass, vector, where, k,
		"note_id", "patient_id", "patient_name", "visit_date", "visit_notes")
	if err != nil {
		return nil, err
	}

	hits := make([]model.NoteHit, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, model.NoteHit{
			ID:          str(r, "note_id"),
			PatientID:   str(r, "patient_id"),
			PatientName: str(r, "patient_name"),
			VisitDate:   str(r, "visit_date"),
			VisitNotes:  str(r, "visit_notes"),
			Distance:    distance(r),
		})
	}
	return hits, nil
}

func (w *WeaviateIndex) search(ctx context.Context, class string, vector []float32, where *filters.WhereBuilder, k int, props ...string) ([]map[string]interface{}, error) {
	if len(vector) == 0 {
		return nil, nil
	}

	fields := make([]graphql.Field, 0, len(props)+1)
	for _, p := range props {
		fields = append(fields, graphql.Field{Name: p})
	}
	fields = append(fields, graphql.Field{
		Name:   "_additional",
		Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}},
	})

	builder := w.client.GraphQL().Get().
		WithClassName(class).
		WithFields(fields...).
		WithNearVector(w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)).
		WithLimit(clampK(k))
	if where != nil {
		builder = builder.WithWhere(where)
	}

	result, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector search failed: %s", result.Errors[0].Message)
	}

	get, _ := result.Data["Get"].(map[string]interface{})
	items, _ := get[class].([]interface{})
	rows := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if row, ok := item.(map[string]interface{}); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func str(row map[string]interface{}, key string) string {
	s, _ := row[key].(string)
	return s
}

func distance(row map[string]interface{}) *float64 {
	additional, ok := row["_additional"].(map[string]interface{})
	if !ok {
		return nil
	}
	d, ok := additional["distance"].(float64)
	if !ok {
		return nil
	}
	return &d
}
