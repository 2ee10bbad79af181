package slot

import (
	"net/http"
	"time"

	"github.com/lotusmind/session-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "time slot not found")
	ErrFullyBooked      = apperror.New(http.StatusConflict, "Time slot is fully booked")
	ErrSlotBooked       = apperror.New(http.StatusConflict, "cannot modify a booked time slot, cancel its bookings first")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "slot must run at least one minute, start before end")
	ErrStartTimePast    = apperror.New(http.StatusBadRequest, "cannot create a time slot in the past")
	ErrInvalidPrice     = apperror.New(http.StatusBadRequest, "session price must be positive")
	ErrNotOwner         = apperror.New(http.StatusForbidden, "time slot belongs to another mentor")
	ErrInvalidRecurring = apperror.New(http.StatusBadRequest, "recurring slots need at least one weekday")
)

// Kind is the kind of session taught in a slot.
type Kind string

const (
	KindYoga       Kind = "YOGA"
	KindMeditation Kind = "MEDITATION"
	KindDiet       Kind = "DIET"
)

// Slot is a mentor-published availability window with finite capacity.
//
// CurrentReserved counts committed bookings AND live payment holds: the
// reservation coordinator increments it when a hold is taken, so
// availability reads never present a seat another student is paying for.
// It moves only through Repository.ReserveCapacity / ReleaseCapacity.
type Slot struct {
	ID              string
	MentorID        string
	MentorName      string
	StartTime       time.Time
	EndTime         time.Time
	Kind            Kind
	MaxCapacity     int
	CurrentReserved int
	IsActive        bool
	Price           int64 // minor units (paise); 0 means "use mentor default"
	SessionLink     string
	IsRecurring     bool
	RecurringDays   []string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Available reports whether the slot can take one more reservation.
func (s *Slot) Available(now time.Time) bool {
	return s.IsActive && s.StartTime.After(now) && s.CurrentReserved < s.MaxCapacity
}

// Duration returns the session length in minutes.
func (s *Slot) Duration() int {
	return int(s.EndTime.Sub(s.StartTime).Minutes())
}

// Filter narrows availability listings. Only slots that are active, in the
// future and below capacity are returned regardless of the filter.
type Filter struct {
	MentorID string
	Kind     string
	Date     *time.Time // match slots starting within this calendar day (UTC)
	Page     int
	PageSize int
}
