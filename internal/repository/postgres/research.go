package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
)

type researchRepository struct {
	BaseRepository
}

func NewResearchRepository(db *sqlx.DB) repository.ResearchRepository {
	return &researchRepository{NewBaseRepository(db)}
}

const paperColumns = `id, title, author, article_text, article_citation, pmc_link, source_type, added_by, vectorized, created_at`

func (r *researchRepository) SearchPapers(ctx context.Context, term string, limit int) ([]*model.ResearchPaper, error) {
	query := `
		SELECT ` + paperColumns + `
		FROM research_papers
		WHERE LOWER(title) LIKE $1 OR LOWER(article_text) LIKE $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var papers []*model.ResearchPaper
	if err := r.db.SelectContext(ctx, &papers, query, likePattern(term), limit); err != nil {
		return nil, fmt.Errorf("failed to search papers: %w", err)
	}
	return papers, nil
}

// ResolvePMCLink looks the link up by citation first and by title second.
// An unknown paper resolves to "".
func (r *researchRepository) ResolvePMCLink(ctx context.Context, citation, title string) (string, error) {
	lookups := []struct {
		column string
		value  string
	}{
		{"article_citation", citation},
		{"title", title},
	}
	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		var link string
		query := `SELECT pmc_link FROM research_papers WHERE ` + l.column + ` = $1 AND pmc_link <> '' LIMIT 1`
		err := r.getOne(ctx, &link, query, l.value)
		if err == nil {
			return link, nil
		}
		if err != repository.ErrNotFound {
			return "", fmt.Errorf("failed to resolve pmc link: %w", err)
		}
	}
	return "", nil
}

func (r *researchRepository) PaperExists(ctx context.Context, citation string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM research_papers WHERE article_citation = $1)`
	if err := r.db.GetContext(ctx, &exists, query, citation); err != nil {
		return false, fmt.Errorf("failed to check paper: %w", err)
	}
	return exists, nil
}

func (r *researchRepository) SavePaper(ctx context.Context, paper *model.ResearchPaper) error {
	query := `
		INSERT INTO research_papers (
			id, title, author, article_text, article_citation, pmc_link, source_type, added_by, vectorized, created_at
		) VALUES (
			:id, :title, :author, :article_text, :article_citation, :pmc_link, :source_type, :added_by, :vectorized, :created_at
		)
	`
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, paper); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("paper %q: %w", paper.ArticleCitation, repository.ErrConflict)
		}
		return fmt.Errorf("failed to save paper: %w", err)
	}
	return nil
}

func (r *researchRepository) MarkPaperVectorized(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE research_papers SET vectorized = TRUE WHERE id = $1`, id)
	return err
}

// ClaimUnvectorizedPapers stamps and returns up to limit papers without a
// vector, never-attempted first. Papers attempted within vectorRetryAfter
// are left out.
func (r *researchRepository) ClaimUnvectorizedPapers(ctx context.Context, limit int) ([]*model.ResearchPaper, error) {
	query := `
		UPDATE research_papers
		SET vector_attempted_at = NOW()
		WHERE id IN (
			SELECT id
			FROM research_papers
			WHERE NOT vectorized
			  AND (vector_attempted_at IS NULL OR vector_attempted_at < NOW() - $1 * INTERVAL '1 second')
			ORDER BY vector_attempted_at NULLS FIRST, created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + paperColumns
	var papers []*model.ResearchPaper
	if err := r.db.SelectContext(ctx, &papers, query, int(vectorRetryAfter.Seconds()), limit); err != nil {
		return nil, fmt.Errorf("failed to claim unvectorized papers: %w", err)
	}
	return papers, nil
}

func (r *researchRepository) SaveQuestion(ctx context.Context, q *model.ResearchQuestion) error {
	query := `
		INSERT INTO research_questions (id, patient_id, question_asked, doctor_name, timestamp)
		VALUES (:id, :patient_id, :question_asked, :doctor_name, :timestamp)
	`
	if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
		return fmt.Errorf("failed to save research question: %w", err)
	}
	return nil
}

func (r *researchRepository) SaveAnswer(ctx context.Context, a *model.ResearchAnswer) error {
	query := `
		INSERT INTO research_answers (
			id, question_id, question_asked, answer_provided, answer_rating, doctor_name, timestamp
		) VALUES (
			:id, :question_id, :question_asked, :answer_provided, :answer_rating, :doctor_name, :timestamp
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("failed to save research answer: %w", err)
	}
	return nil
}

func (r *researchRepository) UpdateAnswerRating(ctx context.Context, id string, rating int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE research_answers SET answer_rating = $1 WHERE id = $2`, rating, id)
	if err != nil {
		return false, fmt.Errorf("failed to update answer rating: %w", err)
	}
	return affected(res)
}
