package docnotes

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Service interface {
	List(ctx context.Context, patientID string) (*model.NoteList, error)
	Save(ctx context.Context, req *model.SaveNoteRequest) (*model.NoteSaved, error)
	Delete(ctx context.Context, noteID string) (*model.NoteSaved, error)
	Search(ctx context.Context, patientID string, req *model.NotesSearchRequest) (*model.NotesSearchResult, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/doctor-notes", h.ListNotes)
	r.POST("/patients/:id/doctor-notes/search", h.SearchNotes)

	notes := r.Group("/doctor-notes")
	{
		notes.POST("", h.SaveNote)
		notes.DELETE("/:id", h.DeleteNote)
	}
}

func (h *Handler) ListNotes(c *gin.Context) {
	out, err := h.service.List(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SaveNote(c *gin.Context) {
	var req model.SaveNoteRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.Save(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) DeleteNote(c *gin.Context) {
	out, err := h.service.Delete(c.Request.Context(), handler.Param(c, "id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SearchNotes(c *gin.Context) {
	var req model.NotesSearchRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.Search(c.Request.Context(), handler.Param(c, "id"), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
