package reservation

import (
	"net/http"
	"time"

	"github.com/lotusmind/session-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "reservation not found")
	ErrNotOwner        = apperror.New(http.StatusForbidden, "reservation belongs to another user")
	ErrHoldExpired     = apperror.New(http.StatusConflict, "reservation hold has expired, please book again")
	ErrPendingExists   = apperror.New(http.StatusConflict, "you already have a pending reservation for this slot")
	ErrSlotNotBookable = apperror.New(http.StatusBadRequest, "time slot is no longer open for booking")
)

type IntentStatus string

const (
	IntentPending   IntentStatus = "PENDING"
	IntentCommitted IntentStatus = "COMMITTED"
	IntentExpired   IntentStatus = "EXPIRED"
	IntentFailed    IntentStatus = "FAILED"
)

// Intent is a durable reservation hold. While PENDING it owns exactly one
// capacity unit of its slot; the unit is returned when the intent expires
// or fails, and converted into a booking when payment verifies. UserEmail
// is captured from the access token so confirmation mail needs no user
// table lookup.
type Intent struct {
	ID        string
	UserID    string
	UserEmail string
	SlotID    string
	MentorID  string
	Status    IntentStatus
	Amount    int64 // minor units (paise)
	Currency  string
	OrderID   string
	PaymentID string
	Notes     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the hold window has passed.
func (i *Intent) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
