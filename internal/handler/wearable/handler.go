package wearable

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Service interface {
	Analyze(ctx context.Context, patientID, question string) (*model.WearableAnalysisResult, error)
	Alerts(ctx context.Context, patientID string) (*model.AlertList, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients/:id/wearables/analyze", h.Analyze)
	r.GET("/patients/:id/alerts", h.ListAlerts)
}

// Analyze runs the alerting agent. The question may come in the body or
// as a query parameter.
func (h *Handler) Analyze(c *gin.Context) {
	var req model.WearableAnalyzeRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}
	if req.Question == "" {
		req.Question = c.Query("question")
	}

	out, err := h.service.Analyze(c.Request.Context(), handler.Param(c, "id"), req.Question)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) ListAlerts(c *gin.Context) {
	out, err := h.service.Alerts(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
