package http

import (
	"time"

	"github.com/lotusmind/session-booking-backend/internal/mentor"
	"github.com/lotusmind/session-booking-backend/internal/pkg/request"
)

// ListMentorsRequest defines query parameters for listing mentors.
type ListMentorsRequest struct {
	request.ListParams
	Kind string `form:"kind" binding:"omitempty,oneof=YOGA MEDITATION DIET"`
}

// MentorTag is the compact mentor reference embedded in other responses.
type MentorTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MentorResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	SessionPrice int64     `json:"session_price"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewMentorResponse(m *mentor.Mentor) MentorResponse {
	return MentorResponse{
		ID:           m.ID,
		Name:         m.Name,
		Kind:         string(m.Kind),
		SessionPrice: m.SessionPrice,
		CreatedAt:    m.CreatedAt,
	}
}
