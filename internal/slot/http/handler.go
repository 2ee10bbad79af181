package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lotusmind/session-booking-backend/internal/auth"
	"github.com/lotusmind/session-booking-backend/internal/pkg/request"
	"github.com/lotusmind/session-booking-backend/internal/pkg/response"
	"github.com/lotusmind/session-booking-backend/internal/slot"
)

type Handler struct {
	service slot.Service
}

func NewHandler(service slot.Service) *Handler {
	return &Handler{service: service}
}

// ListAvailable returns only slots a student can still reserve: active,
// in the future and below capacity (holds included).
func (h *Handler) ListAvailable(c *gin.Context) {
	var req ListSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	req.Normalize()

	filter := slot.Filter{
		MentorID: req.MentorID,
		Kind:     req.Kind,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Date != "" {
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}
		filter.Date = &day
	}

	slots, total, err := h.service.ListAvailable(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// ListMine returns the calling mentor's full schedule, booked slots included.
func (h *Handler) ListMine(c *gin.Context) {
	var params request.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	params.Normalize()

	slots, total, err := h.service.ListByMentor(c.Request.Context(), auth.GetUserID(c), params.Page, params.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, params.Page, params.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	s, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewSlotResponse(s))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateSlotBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	req := slot.CreateRequest{
		MentorID:      auth.GetUserID(c),
		StartTime:     body.StartTime,
		EndTime:       body.EndTime,
		Kind:          slot.Kind(body.Kind),
		MaxCapacity:   body.MaxCapacity,
		Price:         body.Price,
		SessionLink:   body.SessionLink,
		IsRecurring:   body.IsRecurring,
		RecurringDays: body.RecurringDays,
		Notes:         body.Notes,
	}

	slots, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}

	c.JSON(http.StatusCreated, gin.H{"slots": items})
}

func (h *Handler) Update(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body UpdateSlotBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	update := slot.UpdateRequest{
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		MaxCapacity: body.MaxCapacity,
		IsActive:    body.IsActive,
		Price:       body.Price,
		SessionLink: body.SessionLink,
		Notes:       body.Notes,
	}
	if body.Kind != nil {
		k := slot.Kind(*body.Kind)
		update.Kind = &k
	}

	s, err := h.service.Update(c.Request.Context(), req.ID, update, auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewSlotResponse(s))
}

func (h *Handler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), req.ID, auth.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
