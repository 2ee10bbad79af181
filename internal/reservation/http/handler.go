package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lotusmind/session-booking-backend/internal/auth"
	bookingHttp "github.com/lotusmind/session-booking-backend/internal/booking/http"
	"github.com/lotusmind/session-booking-backend/internal/pkg/response"
	"github.com/lotusmind/session-booking-backend/internal/reservation"
)

type Handler struct {
	service reservation.Service
}

func NewHandler(service reservation.Service) *Handler {
	return &Handler{service: service}
}

// Create places a hold on the slot and opens a payment order.
func (h *Handler) Create(c *gin.Context) {
	var body CreateReservationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := auth.GetUserID(c)

	intent, err := h.service.Request(c.Request.Context(), reservation.RequestInput{
		UserID:    userID,
		UserEmail: auth.GetUserEmail(c),
		SlotID:    body.SlotID,
		Notes:     body.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, toReservationResponse(intent))
}

// Verify settles a reservation against the checkout callback fields and
// returns the booking. Safe to retry with the same order.
func (h *Handler) Verify(c *gin.Context) {
	var body VerifyPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := auth.GetUserID(c)

	b, err := h.service.VerifyAndCommit(c.Request.Context(), reservation.VerifyInput{
		UserID:    userID,
		OrderID:   body.RazorpayOrderID,
		PaymentID: body.RazorpayPaymentID,
		Signature: body.RazorpaySignature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, bookingHttp.ToBookingResponse(b))
}
