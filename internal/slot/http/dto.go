package http

import (
	"time"

	mentorHttp "github.com/lotusmind/session-booking-backend/internal/mentor/http"
	"github.com/lotusmind/session-booking-backend/internal/pkg/request"
	"github.com/lotusmind/session-booking-backend/internal/slot"
)

// ListSlotsRequest defines query parameters for the availability listing.
type ListSlotsRequest struct {
	request.ListParams
	MentorID string `form:"mentor_id" binding:"omitempty,uuid"`
	Kind     string `form:"kind" binding:"omitempty,oneof=YOGA MEDITATION DIET"`
	Date     string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

type CreateSlotBody struct {
	StartTime     time.Time `json:"start_time" binding:"required"`
	EndTime       time.Time `json:"end_time" binding:"required"`
	Kind          string    `json:"kind" binding:"required,oneof=YOGA MEDITATION DIET"`
	MaxCapacity   int       `json:"max_capacity" binding:"omitempty,min=1,max=10"`
	Price         int64     `json:"price" binding:"omitempty,min=1"`
	SessionLink   string    `json:"session_link" binding:"required,url"`
	IsRecurring   bool      `json:"is_recurring"`
	RecurringDays []string  `json:"recurring_days" binding:"omitempty,dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Notes         string    `json:"notes"`
}

type UpdateSlotBody struct {
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Kind        *string    `json:"kind" binding:"omitempty,oneof=YOGA MEDITATION DIET"`
	MaxCapacity *int       `json:"max_capacity" binding:"omitempty,min=1,max=10"`
	IsActive    *bool      `json:"is_active"`
	Price       *int64     `json:"price" binding:"omitempty,min=1"`
	SessionLink *string    `json:"session_link" binding:"omitempty,url"`
	Notes       *string    `json:"notes"`
}

type SlotResponse struct {
	ID              string               `json:"id"`
	Mentor          mentorHttp.MentorTag `json:"mentor"`
	StartTime       time.Time            `json:"start_time"`
	EndTime         time.Time            `json:"end_time"`
	Kind            string               `json:"kind"`
	MaxCapacity     int                  `json:"max_capacity"`
	CurrentReserved int                  `json:"current_reserved"`
	IsActive        bool                 `json:"is_active"`
	Price           int64                `json:"price"`
	SessionLink     string               `json:"session_link,omitempty"`
	IsRecurring     bool                 `json:"is_recurring"`
	RecurringDays   []string             `json:"recurring_days,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func NewSlotResponse(s *slot.Slot) SlotResponse {
	return SlotResponse{
		ID:              s.ID,
		Mentor:          mentorHttp.MentorTag{ID: s.MentorID, Name: s.MentorName},
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		Kind:            string(s.Kind),
		MaxCapacity:     s.MaxCapacity,
		CurrentReserved: s.CurrentReserved,
		IsActive:        s.IsActive,
		Price:           s.Price,
		SessionLink:     s.SessionLink,
		IsRecurring:     s.IsRecurring,
		RecurringDays:   s.RecurringDays,
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
