package mentor

import (
	"net/http"
	"time"

	"github.com/lotusmind/session-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound = apperror.New(http.StatusNotFound, "mentor not found")
)

// Kind mirrors the session kinds a mentor teaches.
type Kind string

const (
	KindYoga       Kind = "YOGA"
	KindMeditation Kind = "MEDITATION"
	KindDiet       Kind = "DIET"
)

// Mentor is a published mentor profile. Profiles are written by the
// onboarding system; this service only reads them (price fallback,
// notification addresses, browse listing).
type Mentor struct {
	ID           string
	Name         string
	Email        string
	Kind         Kind
	SessionPrice int64 // default per-session price in minor units (paise)
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Filter narrows mentor listings.
type Filter struct {
	Kind     string
	Page     int
	PageSize int
}
