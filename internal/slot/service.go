package slot

import (
	"context"
	"time"

	"github.com/lotusmind/session-booking-backend/internal/mentor"
)

// Booking duration is stored in whole minutes, so anything shorter
// truncates to zero and can never be committed.
const minSlotDuration = time.Minute

type CreateRequest struct {
	MentorID      string
	StartTime     time.Time
	EndTime       time.Time
	Kind          Kind
	MaxCapacity   int
	Price         int64 // minor units; 0 falls back to the mentor default
	SessionLink   string
	IsRecurring   bool
	RecurringDays []string
	Notes         string
}

type UpdateRequest struct {
	StartTime   *time.Time
	EndTime     *time.Time
	Kind        *Kind
	MaxCapacity *int
	IsActive    *bool
	Price       *int64
	SessionLink *string
	Notes       *string
}

type Service interface {
	// Create publishes a slot; recurring templates expand into one slot per
	// occurrence within the recurrence horizon.
	Create(ctx context.Context, req CreateRequest) ([]*Slot, error)
	GetByID(ctx context.Context, id string) (*Slot, error)
	ListAvailable(ctx context.Context, filter Filter) ([]*Slot, int, error)
	ListByMentor(ctx context.Context, mentorID string, page, pageSize int) ([]*Slot, int, error)
	Update(ctx context.Context, id string, req UpdateRequest, mentorID string) (*Slot, error)
	Delete(ctx context.Context, id string, mentorID string) error
}

type service struct {
	repo          Repository
	mentorService mentor.Service
}

func NewService(repo Repository, mentorService mentor.Service) Service {
	return &service{
		repo:          repo,
		mentorService: mentorService,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) ([]*Slot, error) {
	if req.EndTime.Sub(req.StartTime) < minSlotDuration {
		return nil, ErrInvalidTimeRange
	}
	if req.StartTime.Before(time.Now().UTC()) {
		return nil, ErrStartTimePast
	}
	if req.IsRecurring && len(req.RecurringDays) == 0 {
		return nil, ErrInvalidRecurring
	}

	m, err := s.mentorService.GetByID(ctx, req.MentorID)
	if err != nil {
		return nil, err
	}

	price := req.Price
	if price == 0 {
		price = m.SessionPrice
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	if req.MaxCapacity < 1 {
		req.MaxCapacity = 1
	}
	if req.MaxCapacity > 10 {
		req.MaxCapacity = 10
	}

	windows := [][2]time.Time{{req.StartTime, req.EndTime}}
	if req.IsRecurring {
		windows = expandOccurrences(req.StartTime, req.EndTime, req.RecurringDays, 0)
	}

	slots := make([]*Slot, 0, len(windows))
	for _, w := range windows {
		slots = append(slots, &Slot{
			MentorID:      req.MentorID,
			MentorName:    m.Name,
			StartTime:     w[0],
			EndTime:       w[1],
			Kind:          req.Kind,
			MaxCapacity:   req.MaxCapacity,
			IsActive:      true,
			Price:         price,
			SessionLink:   req.SessionLink,
			IsRecurring:   req.IsRecurring,
			RecurringDays: req.RecurringDays,
			Notes:         req.Notes,
		})
	}

	if err := s.repo.Create(ctx, slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Slot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListAvailable(ctx context.Context, filter Filter) ([]*Slot, int, error) {
	return s.repo.ListAvailable(ctx, filter)
}

func (s *service) ListByMentor(ctx context.Context, mentorID string, page, pageSize int) ([]*Slot, int, error) {
	return s.repo.ListByMentor(ctx, mentorID, page, pageSize)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, mentorID string) (*Slot, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.MentorID != mentorID {
		return nil, ErrNotOwner
	}

	if req.StartTime != nil {
		existing.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		existing.EndTime = *req.EndTime
	}
	if existing.EndTime.Sub(existing.StartTime) < minSlotDuration {
		return nil, ErrInvalidTimeRange
	}
	if req.StartTime != nil && req.StartTime.Before(time.Now().UTC()) {
		return nil, ErrStartTimePast
	}

	if req.Kind != nil {
		existing.Kind = *req.Kind
	}
	if req.MaxCapacity != nil {
		existing.MaxCapacity = *req.MaxCapacity
		if existing.MaxCapacity < 1 {
			existing.MaxCapacity = 1
		}
		if existing.MaxCapacity > 10 {
			existing.MaxCapacity = 10
		}
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if req.Price != nil {
		if *req.Price <= 0 {
			return nil, ErrInvalidPrice
		}
		existing.Price = *req.Price
	}
	if req.SessionLink != nil {
		existing.SessionLink = *req.SessionLink
	}
	if req.Notes != nil {
		existing.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *service) Delete(ctx context.Context, id string, mentorID string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.MentorID != mentorID {
		return ErrNotOwner
	}

	return s.repo.Delete(ctx, id)
}
