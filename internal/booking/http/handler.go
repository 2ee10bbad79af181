package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lotusmind/session-booking-backend/internal/auth"
	"github.com/lotusmind/session-booking-backend/internal/booking"
	"github.com/lotusmind/session-booking-backend/internal/pkg/request"
	"github.com/lotusmind/session-booking-backend/internal/pkg/response"
)

// CancelService is implemented by the reservation coordinator, which owns
// the transactional cancel path (status swap plus capacity release).
type CancelService interface {
	Cancel(ctx context.Context, bookingID, requesterID, reason string) (*booking.Booking, error)
}

type Handler struct {
	service   booking.Service
	canceller CancelService
}

func NewHandler(service booking.Service, canceller CancelService) *Handler {
	return &Handler{service: service, canceller: canceller}
}

// List returns the caller's bookings: a student sees sessions they booked,
// a mentor sees sessions booked with them.
func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Normalize()

	userID := auth.GetUserID(c)

	var (
		items []*booking.Booking
		total int
		err   error
	)
	if auth.GetRole(c) == auth.RoleMentor {
		items, total, err = h.service.ListForMentor(c.Request.Context(), userID, req.Status, req.Page, req.PageSize)
	} else {
		items, total, err = h.service.ListForStudent(c.Request.Context(), userID, req.Status, req.Page, req.PageSize)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(ToBookingResponses(items), req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := auth.GetUserID(c)

	b, err := h.service.GetByID(c.Request.Context(), req.ID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, ToBookingResponse(b))
}

// Cancel cancels a scheduled session on behalf of either party.
func (h *Handler) Cancel(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body CancelBookingBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	userID := auth.GetUserID(c)

	b, err := h.canceller.Cancel(c.Request.Context(), req.ID, userID, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, ToBookingResponse(b))
}
