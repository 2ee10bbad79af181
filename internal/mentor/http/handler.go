package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lotusmind/session-booking-backend/internal/mentor"
	"github.com/lotusmind/session-booking-backend/internal/pkg/request"
	"github.com/lotusmind/session-booking-backend/internal/pkg/response"
)

type Handler struct {
	service mentor.Service
}

func NewHandler(service mentor.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListMentorsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	req.Normalize()

	filter := mentor.Filter{
		Kind:     req.Kind,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	mentors, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]MentorResponse, len(mentors))
	for i, m := range mentors {
		items[i] = NewMentorResponse(m)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewMentorResponse(m))
}
