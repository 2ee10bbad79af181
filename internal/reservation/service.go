package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lotusmind/session-booking-backend/internal/booking"
	"github.com/lotusmind/session-booking-backend/internal/mentor"
	"github.com/lotusmind/session-booking-backend/internal/notification"
	"github.com/lotusmind/session-booking-backend/internal/payment"
	"github.com/lotusmind/session-booking-backend/internal/slot"
)

type RequestInput struct {
	UserID    string
	UserEmail string
	SlotID    string
	Notes     string
}

type VerifyInput struct {
	UserID    string
	OrderID   string
	PaymentID string
	Signature string
}

type Service interface {
	// Request places a capacity hold on the slot, opens a payment order
	// and persists the intent. The hold is the capacity increment itself:
	// once Request returns, the seat is taken until the intent commits,
	// fails or expires.
	Request(ctx context.Context, in RequestInput) (*Intent, error)

	// VerifyAndCommit checks the payment signature and converts the
	// intent into a booking. Replaying the same order returns the same
	// booking.
	VerifyAndCommit(ctx context.Context, in VerifyInput) (*booking.Booking, error)

	// Cancel cancels a scheduled booking on behalf of either party and
	// returns the capacity unit to the slot.
	Cancel(ctx context.Context, bookingID, requesterID, reason string) (*booking.Booking, error)
}

type service struct {
	repo       Repository
	slots      slot.Repository
	bookings   booking.Repository
	mentors    mentor.Repository
	gateway    payment.Gateway
	dispatcher *notification.Dispatcher
	currency   string
	holdTTL    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(
	repo Repository,
	slots slot.Repository,
	bookings booking.Repository,
	mentors mentor.Repository,
	gateway payment.Gateway,
	dispatcher *notification.Dispatcher,
	currency string,
	holdTTL time.Duration,
	logger *zap.Logger,
) Service {
	return &service{
		repo:       repo,
		slots:      slots,
		bookings:   bookings,
		mentors:    mentors,
		gateway:    gateway,
		dispatcher: dispatcher,
		currency:   currency,
		holdTTL:    holdTTL,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *service) Request(ctx context.Context, in RequestInput) (*Intent, error) {
	now := s.now()

	sl, err := s.slots.GetByID(ctx, in.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot failed: %w", err)
	}
	if !sl.IsActive || !sl.StartTime.After(now) {
		return nil, ErrSlotNotBookable
	}

	price := sl.Price
	if price == 0 {
		m, err := s.mentors.GetByID(ctx, sl.MentorID)
		if err != nil {
			return nil, fmt.Errorf("get mentor failed: %w", err)
		}
		price = m.SessionPrice
	}
	if price <= 0 {
		return nil, ErrSlotNotBookable
	}

	// Cheap pre-checks before consuming capacity. Both have hard
	// backstops: the partial unique index at commit and the capacity
	// conditional update below.
	active, err := s.bookings.HasActiveWith(ctx, in.UserID, sl.MentorID)
	if err != nil {
		return nil, fmt.Errorf("active booking check failed: %w", err)
	}
	if active {
		return nil, booking.ErrDuplicateActive
	}

	pending, err := s.repo.HasPendingForSlot(ctx, in.UserID, in.SlotID, now)
	if err != nil {
		return nil, fmt.Errorf("pending intent check failed: %w", err)
	}
	if pending {
		return nil, ErrPendingExists
	}

	// The hold. From here every failure path must release.
	if err := s.slots.ReserveCapacity(ctx, in.SlotID); err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
		Amount:   price,
		Currency: s.currency,
		Receipt:  "rcpt-" + uuid.NewString(),
		Notes: map[string]string{
			"slot_id": in.SlotID,
			"user_id": in.UserID,
		},
	})
	if err != nil {
		s.releaseHold(ctx, in.SlotID)
		return nil, err
	}

	intent := &Intent{
		UserID:    in.UserID,
		UserEmail: in.UserEmail,
		SlotID:    in.SlotID,
		MentorID:  sl.MentorID,
		Status:    IntentPending,
		Amount:    price,
		Currency:  order.Currency,
		OrderID:   order.ID,
		Notes:     in.Notes,
		ExpiresAt: now.Add(s.holdTTL),
	}
	if err := s.repo.Create(ctx, intent); err != nil {
		s.releaseHold(ctx, in.SlotID)
		return nil, err
	}

	return intent, nil
}

func (s *service) VerifyAndCommit(ctx context.Context, in VerifyInput) (*booking.Booking, error) {
	intent, err := s.repo.GetByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if intent.UserID != in.UserID {
		return nil, ErrNotOwner
	}

	// Replay of an already settled order returns the existing booking.
	if intent.Status == IntentCommitted {
		return s.bookings.GetByOrderID(ctx, in.OrderID)
	}
	if intent.Status == IntentExpired || intent.Status == IntentFailed {
		return nil, ErrHoldExpired
	}

	if err := s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature); err != nil {
		s.failIntent(ctx, intent)
		return nil, err
	}

	sl, err := s.slots.GetByID(ctx, intent.SlotID)
	if err != nil {
		return nil, fmt.Errorf("get slot failed: %w", err)
	}

	b := &booking.Booking{
		UserID:          intent.UserID,
		MentorID:        intent.MentorID,
		SlotID:          intent.SlotID,
		Kind:            string(sl.Kind),
		ScheduledAt:     sl.StartTime,
		DurationMinutes: sl.Duration(),
		Status:          booking.StatusScheduled,
		PaymentStatus:   booking.PaymentCompleted,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		OrderID:         intent.OrderID,
		PaymentID:       in.PaymentID,
		Notes:           intent.Notes,
	}

	switch err := s.repo.Commit(ctx, intent.ID, in.PaymentID, b); {
	case err == nil:
	case errors.Is(err, errAlreadyCommitted):
		return s.bookings.GetByOrderID(ctx, in.OrderID)
	case errors.Is(err, ErrHoldExpired):
		return nil, ErrHoldExpired
	case errors.Is(err, booking.ErrDuplicateActive), errors.Is(err, booking.ErrDuplicateOrder):
		s.failIntent(ctx, intent)
		return nil, err
	default:
		return nil, err
	}

	b.MentorName = sl.MentorName
	s.notifyConfirmed(ctx, intent, b, sl)
	return b, nil
}

func (s *service) Cancel(ctx context.Context, bookingID, requesterID, reason string) (*booking.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.IsParty(requesterID) {
		return nil, booking.ErrNotParty
	}
	if b.Status != booking.StatusScheduled {
		return nil, booking.ErrNotCancellable
	}

	cancelledBy := "student"
	if requesterID == b.MentorID {
		cancelledBy = "mentor"
	}

	at := s.now()
	if err := s.repo.Cancel(ctx, b.ID, b.SlotID, cancelledBy, reason, at); err != nil {
		return nil, err
	}

	b.Status = booking.StatusCancelled
	b.CancelledBy = cancelledBy
	b.CancelReason = reason
	b.CancelledAt = &at

	s.notifyCancelled(ctx, b, cancelledBy)
	return b, nil
}

// failIntent flips the intent to FAILED and, when this call wins the
// flip, releases the capacity hold. Losing the race means someone else
// already settled the intent and the hold is theirs to account for.
func (s *service) failIntent(ctx context.Context, intent *Intent) {
	won, err := s.repo.Fail(ctx, intent.ID)
	if err != nil {
		s.logger.Error("fail intent failed",
			zap.String("intent_id", intent.ID), zap.Error(err))
		return
	}
	if won {
		s.releaseHold(ctx, intent.SlotID)
	}
}

func (s *service) releaseHold(ctx context.Context, slotID string) {
	if err := s.slots.ReleaseCapacity(ctx, slotID); err != nil {
		s.logger.Error("release capacity hold failed",
			zap.String("slot_id", slotID), zap.Error(err))
	}
}

func (s *service) notifyConfirmed(ctx context.Context, intent *Intent, b *booking.Booking, sl *slot.Slot) {
	event := notification.Event{
		Type:            notification.EventBookingConfirmed,
		BookingID:       b.ID,
		SessionKind:     b.Kind,
		MentorName:      sl.MentorName,
		ScheduledAt:     b.ScheduledAt,
		DurationMinutes: b.DurationMinutes,
		SessionLink:     sl.SessionLink,
		StudentEmail:    intent.UserEmail,
	}
	if m, err := s.mentors.GetByID(ctx, b.MentorID); err == nil {
		event.MentorEmail = m.Email
	} else {
		s.logger.Warn("mentor lookup for notification failed",
			zap.String("mentor_id", b.MentorID), zap.Error(err))
	}
	s.dispatcher.Dispatch(event)
}

func (s *service) notifyCancelled(ctx context.Context, b *booking.Booking, cancelledBy string) {
	event := notification.Event{
		Type:            notification.EventBookingCancelled,
		BookingID:       b.ID,
		SessionKind:     b.Kind,
		MentorName:      b.MentorName,
		ScheduledAt:     b.ScheduledAt,
		DurationMinutes: b.DurationMinutes,
		CancelledBy:     cancelledBy,
		CancelReason:    b.CancelReason,
	}
	if intent, err := s.repo.GetByOrderID(ctx, b.OrderID); err == nil {
		event.StudentEmail = intent.UserEmail
	}
	if m, err := s.mentors.GetByID(ctx, b.MentorID); err == nil {
		event.MentorEmail = m.Email
	}
	s.dispatcher.Dispatch(event)
}
