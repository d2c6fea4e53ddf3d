package appointment

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Service interface {
	ByDoctor(ctx context.Context, doctorID, startDate, endDate string) (*model.AppointmentList, error)
	ByPatient(ctx context.Context, patientID string) (*model.AppointmentList, error)
	UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.AppointmentStatusUpdated, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/doctor/:id", h.ListForDoctor)
		appointments.GET("/patient/:id", h.ListForPatient)
		appointments.POST("/:id/status", h.UpdateStatus)
	}
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	out, err := h.service.ByDoctor(c.Request.Context(), handler.Param(c, "id"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) ListForPatient(c *gin.Context) {
	out, err := h.service.ByPatient(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

type statusBody struct {
	Status string `json:"status"`
}

// UpdateStatus takes the status from the query string, falling back to a
// {"status": ...} body.
func (h *Handler) UpdateStatus(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		var body statusBody
		if !handler.BindJSON(c, &body, true) {
			return
		}
		status = body.Status
	}

	out, err := h.service.UpdateStatus(c.Request.Context(), handler.Param(c, "id"), model.AppointmentStatus(strings.TrimSpace(status)))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
