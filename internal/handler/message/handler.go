package message

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/patientiq/dashboard-api/internal/handler"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/httputil"
)

type Service interface {
	ListPrivate(ctx context.Context, doctorID string, limit int) (*model.MessageList, error)
	ListPublic(ctx context.Context, limit int) (*model.MessageList, error)
	SendPrivate(ctx context.Context, req *model.SendMessageRequest) (*model.MessageSent, error)
	SendPublic(ctx context.Context, req *model.SendMessageRequest) (*model.MessageSent, error)
	MarkRead(ctx context.Context, messageType model.MessageType, id string) (*model.MessageRead, error)
	Route(ctx context.Context, text string) (*model.MessageRoute, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	{
		messages.GET("/private/:doctor_id", h.ListPrivate)
		messages.POST("/private", h.SendPrivate)
		messages.POST("/private/:id/read", h.markRead(model.MessageTypePrivate))

		messages.GET("/public", h.ListPublic)
		messages.POST("/public", h.SendPublic)
		messages.POST("/public/:id/read", h.markRead(model.MessageTypePublic))

		messages.POST("/route", h.Route)
	}
}

func (h *Handler) ListPrivate(c *gin.Context) {
	out, err := h.service.ListPrivate(c.Request.Context(), handler.Param(c, "doctor_id"), handler.IntQuery(c, "limit", 0))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) ListPublic(c *gin.Context) {
	out, err := h.service.ListPublic(c.Request.Context(), handler.IntQuery(c, "limit", 0))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SendPrivate(c *gin.Context) {
	var req model.SendMessageRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.SendPrivate(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) SendPublic(c *gin.Context) {
	var req model.SendMessageRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.SendPublic(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) markRead(messageType model.MessageType) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := h.service.MarkRead(c.Request.Context(), messageType, handler.Param(c, "id"))
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, out)
	}
}

func (h *Handler) Route(c *gin.Context) {
	var req model.RouteMessageRequest
	if !handler.BindJSON(c, &req, true) {
		return
	}

	out, err := h.service.Route(c.Request.Context(), req.Message)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}
