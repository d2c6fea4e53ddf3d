package research

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Service interface {
	PatientResearch(ctx context.Context, patientID, question string) (*model.ResearchResult, error)
	Ask(ctx context.Context, patientID, question string) (*model.ResearchResult, error)
	SaveAnswer(ctx context.Context, req *model.SaveAnswerRequest) (*model.AnswerSaved, error)
	UpdateRating(ctx context.Context, answerID string, raw interface{}) (*model.RatingUpdated, error)
	AddPaper(ctx context.Context, req *model.AddPaperRequest) (*model.PaperAdded, error)
	TavilySearch(ctx context.Context, req *model.ExternalSearchRequest) (*model.ExternalSearchResult, error)
	PubMedSearch(ctx context.Context, req *model.ExternalSearchRequest) (*model.ExternalSearchResult, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/research", h.PatientResearch)
	r.POST("/patients/:id/research/ask", h.Ask)

	research := r.Group("/research")
	{
		research.POST("/answers", h.SaveAnswer)
		research.PATCH("/answers/:id/rating", h.UpdateRating)
		research.POST("/tavily/search", h.TavilySearch)
		research.POST("/pubmed/search", h.PubMedSearch)
		research.POST("/papers/add", h.AddPaper)
	}
}

func (h *Handler) PatientResearch(c *gin.Context) {
	out, err := h.service.PatientResearch(c.Request.Context(), handler.Param(c, "id"), c.Query("question"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) Ask(c *gin.Context) {
	var req model.AskRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.Ask(c.Request.Context(), handler.Param(c, "id"), req.Question)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SaveAnswer(c *gin.Context) {
	var req model.SaveAnswerRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.SaveAnswer(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) UpdateRating(c *gin.Context) {
	var req model.UpdateRatingRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.UpdateRating(c.Request.Context(), handler.Param(c, "id"), req.Rating)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) AddPaper(c *gin.Context) {
	var req model.AddPaperRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.AddPaper(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) TavilySearch(c *gin.Context) {
	var req model.ExternalSearchRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.TavilySearch(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) PubMedSearch(c *gin.Context) {
	var req model.ExternalSearchRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.PubMedSearch(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
