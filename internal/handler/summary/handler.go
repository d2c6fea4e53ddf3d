package summary

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/service/summary"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Service interface {
	ConditionSummary(ctx context.Context, condition string) (*model.ConditionSummary, error)
	WearableSummary(ctx context.Context, patientID string, days int) (*model.WearableSummary, error)
	DoctorNotesSummary(ctx context.Context, patientID string, maxNotes int) (*model.NotesSummary, error)
	QuestionnaireSummary(ctx context.Context, patientID string) (*model.QuestionnaireDigest, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/conditions/summary", h.SummarizeCondition)
	r.GET("/patients/:id/wearables/summary", h.SummarizeWearables)
	r.GET("/patients/:id/doctor-notes/summary", h.SummarizeDoctorNotes)
	r.GET("/questionnaires/pre-visit/:id/summary", h.SummarizeQuestionnaire)
}

func (h *Handler) SummarizeCondition(c *gin.Context) {
	var req model.ConditionSummaryRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.ConditionSummary(c.Request.Context(), req.Condition)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SummarizeWearables(c *gin.Context) {
	days := handler.IntQuery(c, "days", summary.DefaultDays)

	out, err := h.service.WearableSummary(c.Request.Context(), handler.Param(c, "id"), days)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SummarizeDoctorNotes(c *gin.Context) {
	maxNotes := handler.IntQuery(c, "max_notes", summary.DefaultMaxNotes)

	out, err := h.service.DoctorNotesSummary(c.Request.Context(), handler.Param(c, "id"), maxNotes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SummarizeQuestionnaire(c *gin.Context) {
	out, err := h.service.QuestionnaireSummary(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
