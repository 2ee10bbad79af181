package http

import (
	"time"

	"github.com/lotusmind/session-booking-backend/internal/booking"
	"github.com/lotusmind/session-booking-backend/internal/pkg/request"
)

type ListBookingsRequest struct {
	request.ListParams
	Status string `form:"status" binding:"omitempty,oneof=SCHEDULED ONGOING COMPLETED CANCELLED"`
}

type CancelBookingBody struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type BookingResponse struct {
	ID              string     `json:"id"`
	MentorID        string     `json:"mentor_id"`
	MentorName      string     `json:"mentor_name"`
	SlotID          string     `json:"slot_id"`
	Kind            string     `json:"kind"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	OrderID         string     `json:"order_id"`
	Notes           string     `json:"notes,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func ToBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		MentorID:        b.MentorID,
		MentorName:      b.MentorName,
		SlotID:          b.SlotID,
		Kind:            b.Kind,
		ScheduledAt:     b.ScheduledAt,
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
		PaymentStatus:   string(b.PaymentStatus),
		Amount:          b.Amount,
		Currency:        b.Currency,
		OrderID:         b.OrderID,
		Notes:           b.Notes,
		CancelReason:    b.CancelReason,
		CancelledAt:     b.CancelledAt,
		CreatedAt:       b.CreatedAt,
	}
}

func ToBookingResponses(bookings []*booking.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, ToBookingResponse(b))
	}
	return out
}
