package model

import "time"

// ResearchPaper is a stored research article.
type ResearchPaper struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Author          string    `db:"author" json:"author"`
	ArticleText     string    `db:"article_text" json:"article_text"`
	ArticleCitation string    `db:"article_citation" json:"article_citation"`
	PMCLink         string    `db:"pmc_link" json:"pmc_link"`
	SourceType      string    `db:"source_type" json:"source_type"`
	AddedBy         string    `db:"added_by" json:"added_by"`
	Vectorized      bool      `db:"vectorized" json:"vectorized"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Paper is a retrieved paper as the dashboard shows it.
type Paper struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	ArticleText     string   `json:"article_text"`
	ArticleCitation string   `json:"article_citation"`
	PMCLink         string   `json:"pmc_link"`
	Distance        *float64 `json:"distance,omitempty"`
}

// ExternalPaper is a search hit from Tavily or PubMed.
type ExternalPaper struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	ArticleText     string   `json:"article_text"`
	ArticleCitation string   `json:"article_citation"`
	PMCLink         string   `json:"pmc_link"`
	PubMedURL       string   `json:"pubmed_url,omitempty"`
	PMID            string   `json:"pmid,omitempty"`
	SourceType      string   `json:"source_type"`
	Score           *float64 `json:"score,omitempty"`
}

// ResearchResult is the response of the patient research endpoints.
type ResearchResult struct {
	PatientID   string  `json:"patient_id"`
	PatientName string  `json:"patient_name"`
	Condition   string  `json:"condition"`
	Question    string  `json:"question"`
	Papers      []Paper `json:"papers"`
	Answer      string  `json:"answer"`
	QuestionID  string  `json:"question_id,omitempty"`
}

// ResearchQuestion records a question asked through the research assistant.
type ResearchQuestion struct {
	ID            string    `db:"id" json:"question_id"`
	PatientID     string    `db:"patient_id" json:"patient_id"`
	QuestionAsked string    `db:"question_asked" json:"question_asked"`
	DoctorName    string    `db:"doctor_name" json:"doctor_name"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
}

// ResearchAnswer is a saved answer with an optional 1-5 rating.
type ResearchAnswer struct {
	ID             string    `db:"id" json:"answer_id"`
	QuestionID     string    `db:"question_id" json:"question_id"`
	QuestionAsked  string    `db:"question_asked" json:"question_asked"`
	AnswerProvided string    `db:"answer_provided" json:"answer_provided"`
	AnswerRating   *int      `db:"answer_rating" json:"answer_rating,omitempty"`
	DoctorName     string    `db:"doctor_name" json:"doctor_name"`
	Timestamp      time.Time `db:"timestamp" json:"timestamp"`
}

// SaveAnswerRequest is the body of the save-answer endpoint. The rating is
// decoded loosely so non-integer values can be rejected with a clear message.
type SaveAnswerRequest struct {
	QuestionID     string      `json:"question_id"`
	QuestionAsked  string      `json:"question_asked"`
	AnswerProvided string      `json:"answer_provided"`
	AnswerRating   interface{} `json:"answer_rating"`
	DoctorName     string      `json:"doctor_name"`
}

// AddPaperRequest is the body of the add-paper endpoint.
type AddPaperRequest struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ArticleText     string `json:"article_text"`
	ArticleCitation string `json:"article_citation"`
	PMCLink         string `json:"pmc_link"`
	SourceType      string `json:"source_type"`
}

// ExternalSearchRequest is the body of the Tavily and PubMed search endpoints.
type ExternalSearchRequest struct {
	Query              string `json:"query"`
	MaxResults         int    `json:"max_results"`
	DaysBack           int    `json:"days_back"`
	IncludePMCFullText *bool  `json:"include_pmc_full_text"`
}

// UpdateRatingRequest is the body of the rating endpoint.
type UpdateRatingRequest struct {
	Rating interface{} `json:"rating"`
}

// AnswerSaved acknowledges a stored research answer.
type AnswerSaved struct {
	Message  string `json:"message"`
	AnswerID string `json:"answer_id"`
}

// RatingUpdated acknowledges a rating change.
type RatingUpdated struct {
	Message  string `json:"message"`
	AnswerID string `json:"answer_id"`
	Rating   int    `json:"rating"`
}

// PaperAdded acknowledges a paper added to the library.
type PaperAdded struct {
	Message    string `json:"message"`
	PaperID    string `json:"paper_id"`
	Vectorized bool   `json:"vectorized"`
}

// ExternalSearchResult wraps Tavily and PubMed hits.
type ExternalSearchResult struct {
	Results []ExternalPaper `json:"results"`
}

// AskRequest is the body of the research ask endpoint.
type AskRequest struct {
	Question string `json:"question"`
}
