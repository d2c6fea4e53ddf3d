package patient

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/service/patient"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Handler struct {
	service patient.PatientService
}

func NewHandler(service patient.PatientService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.POST("", h.UpsertPatient)
		patients.GET("/:id", h.GetPatient)
		patients.POST("/:id/summary", h.SummarizePatient)
		patients.GET("/:id/wearables", h.GetWearables)
		patients.GET("/:id/patient-notes", h.GetPatientNotes)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if patients == nil {
		patients = []*model.PatientView{}
	}
	httputil.RespondWithSuccess(c, patients)
}

func (h *Handler) GetPatient(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpsertPatient(c *gin.Context) {
	var req model.UpsertPatientRequest
	if !handler.BindJSON(c, &req, false) {
		return
	}

	id, err := h.service.Upsert(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Patient saved successfully", "patient_id": id})
}

func (h *Handler) SummarizePatient(c *gin.Context) {
	id := handler.Param(c, "id")
	log.Info().Str("patient_id", id).Msg("summarize patient")

	summary, err := h.service.Summary(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func (h *Handler) GetWearables(c *gin.Context) {
	days := handler.IntQuery(c, "days", patient.DefaultWearableDays)

	series, err := h.service.Wearables(c.Request.Context(), handler.Param(c, "id"), days)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, series)
}

func (h *Handler) GetPatientNotes(c *gin.Context) {
	notes, err := h.service.PatientNotes(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notes)
}
