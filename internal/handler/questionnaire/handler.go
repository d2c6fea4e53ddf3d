package questionnaire

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Service interface {
	Get(ctx context.Context, patientID string) (model.Questionnaire, error)
	Statuses(ctx context.Context, req *model.QuestionnaireStatusRequest) (*model.QuestionnaireStatuses, error)
	PrevisitSummary(ctx context.Context, patientID string) (*model.PrevisitSummary, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/previsit-summary", h.PrevisitSummary)

	q := r.Group("/questionnaires/pre-visit")
	{
		q.POST("/status", h.Statuses)
		q.GET("/:id", h.GetQuestionnaire)
	}
}

func (h *Handler) GetQuestionnaire(c *gin.Context) {
	out, err := h.service.Get(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) Statuses(c *gin.Context) {
	var req model.QuestionnaireStatusRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.Statuses(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) PrevisitSummary(c *gin.Context) {
	out, err := h.service.PrevisitSummary(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
