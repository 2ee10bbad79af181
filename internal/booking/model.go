package booking

import (
	"net/http"
	"time"

	"github.com/lotusmind/session-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "booking not found")
	ErrDuplicateActive = apperror.New(http.StatusConflict, "you already have an active session with this mentor")
	ErrDuplicateOrder  = apperror.New(http.StatusConflict, "payment order already committed to a booking")
	ErrNotParty        = apperror.New(http.StatusForbidden, "you are not a party to this booking")
	ErrWrongStatus     = apperror.New(http.StatusConflict, "booking is not in the expected status")
	ErrNotCancellable  = apperror.New(http.StatusBadRequest, "only scheduled sessions can be cancelled")
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Booking records a student occupying one capacity unit of a slot. It is
// written only by the reservation coordinator's commit and cancel paths;
// the status worker moves it through SCHEDULED -> ONGOING -> COMPLETED.
type Booking struct {
	ID              string
	UserID          string
	MentorID        string
	MentorName      string
	SlotID          string
	Kind            string
	ScheduledAt     time.Time
	DurationMinutes int
	Status          Status
	PaymentStatus   PaymentStatus
	Amount          int64 // minor units (paise)
	Currency        string
	OrderID         string
	PaymentID       string
	Notes           string
	CancelReason    string
	CancelledBy     string
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terminal reports whether the booking can no longer change state.
func (b *Booking) Terminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusCancelled
}

// IsParty reports whether userID is the student or the mentor.
func (b *Booking) IsParty(userID string) bool {
	return b.UserID == userID || b.MentorID == userID
}

// Filter narrows booking listings.
type Filter struct {
	UserID   string
	MentorID string
	SlotID   string
	Status   string
	Page     int
	PageSize int
}
