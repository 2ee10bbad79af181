package http

import (
	"time"

	"github.com/lotusmind/session-booking-backend/internal/reservation"
)

type CreateReservationBody struct {
	SlotID string `json:"slot_id" binding:"required,uuid"`
	Notes  string `json:"notes" binding:"omitempty,max=500"`
}

type VerifyPaymentBody struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// ReservationResponse carries what the client checkout needs to open the
// payment widget and later verify.
type ReservationResponse struct {
	ID        string    `json:"id"`
	SlotID    string    `json:"slot_id"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	OrderID   string    `json:"order_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func toReservationResponse(i *reservation.Intent) ReservationResponse {
	return ReservationResponse{
		ID:        i.ID,
		SlotID:    i.SlotID,
		Status:    string(i.Status),
		Amount:    i.Amount,
		Currency:  i.Currency,
		OrderID:   i.OrderID,
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
}
