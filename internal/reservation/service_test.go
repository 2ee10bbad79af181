package reservation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lotusmind/session-booking-backend/internal/booking"
	"github.com/lotusmind/session-booking-backend/internal/mentor"
	"github.com/lotusmind/session-booking-backend/internal/notification"
	"github.com/lotusmind/session-booking-backend/internal/payment"
	"github.com/lotusmind/session-booking-backend/internal/slot"
)

// memSlots is a mutex-guarded slot store whose ReserveCapacity has the
// same win-or-conflict semantics as the conditional update it stands in for.
type memSlots struct {
	mu    sync.Mutex
	slots map[string]*slot.Slot
}

func (m *memSlots) Create(_ context.Context, _ []*slot.Slot) error { return nil }

func (m *memSlots) GetByID(_ context.Context, id string) (*slot.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, slot.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) ListAvailable(_ context.Context, _ slot.Filter) ([]*slot.Slot, int, error) {
	return nil, 0, nil
}

func (m *memSlots) ListByMentor(_ context.Context, _ string, _, _ int) ([]*slot.Slot, int, error) {
	return nil, 0, nil
}

func (m *memSlots) Update(_ context.Context, _ *slot.Slot) error { return nil }
func (m *memSlots) Delete(_ context.Context, _ string) error     { return nil }

func (m *memSlots) ReserveCapacity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return slot.ErrNotFound
	}
	if !s.IsActive || s.CurrentReserved >= s.MaxCapacity {
		if !s.IsActive {
			return slot.ErrNotFound
		}
		return slot.ErrFullyBooked
	}
	s.CurrentReserved++
	return nil
}

func (m *memSlots) ReleaseCapacity(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return slot.ErrNotFound
	}
	if s.CurrentReserved > 0 {
		s.CurrentReserved--
	}
	return nil
}

func (m *memSlots) ReleaseCapacityTx(ctx context.Context, _ pgx.Tx, id string) error {
	return m.ReleaseCapacity(ctx, id)
}

func (m *memSlots) reserved(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[id].CurrentReserved
}

// memBookings enforces what the unique indexes enforce in Postgres: one
// active booking per student/mentor pair and one booking per order.
type memBookings struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]*booking.Booking
	byOrder map[string]*booking.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{
		byID:    make(map[string]*booking.Booking),
		byOrder: make(map[string]*booking.Booking),
	}
}

func (m *memBookings) Create(ctx context.Context, b *booking.Booking) error {
	return m.CreateTx(ctx, nil, b)
}

func (m *memBookings) CreateTx(_ context.Context, _ pgx.Tx, b *booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byOrder[b.OrderID]; ok {
		return booking.ErrDuplicateOrder
	}
	for _, other := range m.byID {
		if other.UserID == b.UserID && other.MentorID == b.MentorID &&
			(other.Status == booking.StatusScheduled || other.Status == booking.StatusOngoing) {
			return booking.ErrDuplicateActive
		}
	}
	m.nextID++
	b.ID = fmt.Sprintf("bk-%d", m.nextID)
	b.CreatedAt = time.Now()
	cp := *b
	m.byID[b.ID] = &cp
	m.byOrder[b.OrderID] = &cp
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) GetByOrderID(_ context.Context, orderID string) (*booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byOrder[orderID]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBookings) List(_ context.Context, _ booking.Filter) ([]*booking.Booking, int, error) {
	return nil, 0, nil
}

func (m *memBookings) HasActiveWith(_ context.Context, userID, mentorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byID {
		if b.UserID == userID && b.MentorID == mentorID &&
			(b.Status == booking.StatusScheduled || b.Status == booking.StatusOngoing) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBookings) Transition(_ context.Context, id string, from, to booking.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return booking.ErrNotFound
	}
	if b.Status != from {
		return booking.ErrWrongStatus
	}
	b.Status = to
	return nil
}

func (m *memBookings) CancelTx(_ context.Context, _ pgx.Tx, id, cancelledBy, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok || b.Status != booking.StatusScheduled {
		return booking.ErrNotCancellable
	}
	b.Status = booking.StatusCancelled
	b.CancelledBy = cancelledBy
	b.CancelReason = reason
	b.CancelledAt = &at
	return nil
}

func (m *memBookings) StartDue(_ context.Context, _ time.Time) (int64, error)    { return 0, nil }
func (m *memBookings) CompleteDue(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

type memMentors struct {
	mentors map[string]*mentor.Mentor
}

func (m *memMentors) GetByID(_ context.Context, id string) (*mentor.Mentor, error) {
	mt, ok := m.mentors[id]
	if !ok {
		return nil, mentor.ErrNotFound
	}
	return mt, nil
}

func (m *memMentors) List(_ context.Context, _ mentor.Filter) ([]*mentor.Mentor, int, error) {
	return nil, 0, nil
}

// memIntents mirrors the repository's transactional semantics in memory.
type memIntents struct {
	mu       sync.Mutex
	nextID   int
	byID     map[string]*Intent
	byOrder  map[string]*Intent
	bookings *memBookings
	slots    *memSlots
	now      func() time.Time
}

func newMemIntents(bookings *memBookings, slots *memSlots, now func() time.Time) *memIntents {
	return &memIntents{
		byID:     make(map[string]*Intent),
		byOrder:  make(map[string]*Intent),
		bookings: bookings,
		slots:    slots,
		now:      now,
	}
}

func (m *memIntents) Create(_ context.Context, intent *Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	intent.ID = fmt.Sprintf("in-%d", m.nextID)
	intent.CreatedAt = m.now()
	cp := *intent
	m.byID[intent.ID] = &cp
	m.byOrder[intent.OrderID] = &cp
	return nil
}

func (m *memIntents) GetByID(_ context.Context, id string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *memIntents) GetByOrderID(_ context.Context, orderID string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *memIntents) HasPendingForSlot(_ context.Context, userID, slotID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.byID {
		if i.UserID == userID && i.SlotID == slotID && i.Status == IntentPending && i.ExpiresAt.After(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memIntents) Fail(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[id]
	if !ok || i.Status != IntentPending {
		return false, nil
	}
	i.Status = IntentFailed
	return true, nil
}

func (m *memIntents) Commit(ctx context.Context, intentID, paymentID string, b *booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.byID[intentID]
	if !ok {
		return ErrNotFound
	}
	if i.Status == IntentCommitted {
		return errAlreadyCommitted
	}
	if i.Status != IntentPending || !i.ExpiresAt.After(m.now()) {
		return ErrHoldExpired
	}
	if err := m.bookings.CreateTx(ctx, nil, b); err != nil {
		return err
	}
	i.Status = IntentCommitted
	i.PaymentID = paymentID
	return nil
}

func (m *memIntents) Cancel(ctx context.Context, bookingID, slotID, cancelledBy, reason string, at time.Time) error {
	if err := m.bookings.CancelTx(ctx, nil, bookingID, cancelledBy, reason, at); err != nil {
		return err
	}
	return m.slots.ReleaseCapacity(ctx, slotID)
}

func (m *memIntents) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	var due []*Intent
	for _, i := range m.byID {
		if i.Status == IntentPending && !i.ExpiresAt.After(now) {
			due = append(due, i)
		}
	}
	for _, i := range due {
		i.Status = IntentExpired
	}
	m.mu.Unlock()

	for _, i := range due {
		if err := m.slots.ReleaseCapacity(ctx, i.SlotID); err != nil {
			return 0, err
		}
	}
	return int64(len(due)), nil
}

// stubGateway issues sequential order ids and accepts signatures of the
// form "sig:<orderID>|<paymentID>".
type stubGateway struct {
	mu        sync.Mutex
	orders    int
	createErr error
}

func (g *stubGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.orders++
	return &payment.Order{
		ID:       fmt.Sprintf("order_%d", g.orders),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (g *stubGateway) VerifySignature(orderID, paymentID, signature string) error {
	if signature != "sig:"+orderID+"|"+paymentID {
		return payment.ErrInvalidSignature
	}
	return nil
}

func (g *stubGateway) FetchSubscription(context.Context, string) (string, error) {
	return "active", nil
}

type fixture struct {
	svc      *service
	slots    *memSlots
	bookings *memBookings
	intents  *memIntents
	gateway  *stubGateway
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{now: now}

	f.slots = &memSlots{slots: map[string]*slot.Slot{
		"s1": {
			ID: "s1", MentorID: "m1", MentorName: "Asha",
			StartTime: now.Add(24 * time.Hour), EndTime: now.Add(25 * time.Hour),
			Kind: slot.KindYoga, MaxCapacity: 3, IsActive: true,
			Price: 50000, SessionLink: "https://meet.example.com/asha",
		},
	}}
	f.bookings = newMemBookings()
	f.intents = newMemIntents(f.bookings, f.slots, func() time.Time { return f.now })
	f.gateway = &stubGateway{}

	mentors := &memMentors{mentors: map[string]*mentor.Mentor{
		"m1": {ID: "m1", Name: "Asha", Email: "asha@example.com", Kind: mentor.KindYoga, SessionPrice: 40000},
	}}
	dispatcher := notification.NewDispatcher(dropSender{}, zap.NewNop())

	svc := NewService(
		f.intents, f.slots, f.bookings, mentors,
		f.gateway, dispatcher, "INR", 20*time.Minute, zap.NewNop(),
	).(*service)
	svc.now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

type dropSender struct{}

func (dropSender) Send(_, _, _ string) error { return nil }

func (f *fixture) request(userID string) (*Intent, error) {
	return f.svc.Request(context.Background(), RequestInput{
		UserID:    userID,
		UserEmail: userID + "@example.com",
		SlotID:    "s1",
	})
}

func (f *fixture) verify(userID string, intent *Intent) (*booking.Booking, error) {
	paymentID := "pay_" + intent.OrderID
	return f.svc.VerifyAndCommit(context.Background(), VerifyInput{
		UserID:    userID,
		OrderID:   intent.OrderID,
		PaymentID: paymentID,
		Signature: "sig:" + intent.OrderID + "|" + paymentID,
	})
}

func TestRequestReservation(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)

	assert.Equal(t, IntentPending, intent.Status)
	assert.Equal(t, "order_1", intent.OrderID)
	assert.Equal(t, int64(50000), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, f.now.Add(20*time.Minute), intent.ExpiresAt)
	assert.Equal(t, 1, f.slots.reserved("s1"))
}

func TestRequestReservationSlotNotBookable(t *testing.T) {
	f := newFixture(t)

	f.slots.slots["s1"].IsActive = false
	_, err := f.request("u1")
	assert.ErrorIs(t, err, ErrSlotNotBookable)

	f.slots.slots["s1"].IsActive = true
	f.slots.slots["s1"].StartTime = f.now.Add(-time.Hour)
	_, err = f.request("u1")
	assert.ErrorIs(t, err, ErrSlotNotBookable)

	assert.Equal(t, 0, f.slots.reserved("s1"))
}

func TestRequestReservationDuplicatePending(t *testing.T) {
	f := newFixture(t)

	_, err := f.request("u1")
	require.NoError(t, err)

	_, err = f.request("u1")
	assert.ErrorIs(t, err, ErrPendingExists)
	assert.Equal(t, 1, f.slots.reserved("s1"))
}

func TestRequestReservationDuplicateActiveBooking(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)
	_, err = f.verify("u1", intent)
	require.NoError(t, err)

	_, err = f.request("u1")
	assert.ErrorIs(t, err, booking.ErrDuplicateActive)
	assert.Equal(t, 1, f.slots.reserved("s1"))
}

func TestRequestReservationGatewayFailureReleasesHold(t *testing.T) {
	f := newFixture(t)
	f.gateway.createErr = payment.ErrGatewayUnavailable

	_, err := f.request("u1")
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	assert.Equal(t, 0, f.slots.reserved("s1"))
}

func TestRequestReservationPriceFallsBackToMentorDefault(t *testing.T) {
	f := newFixture(t)
	f.slots.slots["s1"].Price = 0

	intent, err := f.request("u1")
	require.NoError(t, err)
	assert.Equal(t, int64(40000), intent.Amount)
}

func TestConcurrentRequestsNeverOversell(t *testing.T) {
	f := newFixture(t)

	const requesters = 8
	var wg sync.WaitGroup
	errs := make([]error, requesters)

	for n := 0; n < requesters; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = f.request(fmt.Sprintf("u%d", n))
		}(n)
	}
	wg.Wait()

	var holds, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			holds++
		case assert.ErrorIs(t, err, slot.ErrFullyBooked):
			conflicts++
		}
	}

	assert.Equal(t, 3, holds)
	assert.Equal(t, requesters-3, conflicts)
	assert.Equal(t, 3, f.slots.reserved("s1"))
}

func TestVerifyAndCommit(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)

	b, err := f.verify("u1", intent)
	require.NoError(t, err)

	assert.Equal(t, booking.StatusScheduled, b.Status)
	assert.Equal(t, booking.PaymentCompleted, b.PaymentStatus)
	assert.Equal(t, intent.OrderID, b.OrderID)
	assert.Equal(t, "u1", b.UserID)
	assert.Equal(t, "m1", b.MentorID)
	assert.Equal(t, int64(50000), b.Amount)
	assert.Equal(t, 60, b.DurationMinutes)

	stored, err := f.intents.GetByID(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, IntentCommitted, stored.Status)

	// The hold converts into the booking's seat; nothing is released.
	assert.Equal(t, 1, f.slots.reserved("s1"))
}

func TestVerifyAndCommitReplayIdempotent(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)

	first, err := f.verify("u1", intent)
	require.NoError(t, err)

	second, err := f.verify("u1", intent)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.slots.reserved("s1"))
}

func TestVerifyAndCommitTamperedSignature(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)

	_, err = f.svc.VerifyAndCommit(context.Background(), VerifyInput{
		UserID:    "u1",
		OrderID:   intent.OrderID,
		PaymentID: "pay_x",
		Signature: "sig:forged",
	})
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)

	stored, err := f.intents.GetByID(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, IntentFailed, stored.Status)
	assert.Equal(t, 0, f.slots.reserved("s1"))
}

func TestVerifyAndCommitExpiredHold(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)

	f.now = f.now.Add(30 * time.Minute)
	_, err = f.verify("u1", intent)
	assert.ErrorIs(t, err, ErrHoldExpired)
}

func TestVerifyAndCommitWrongUser(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)

	_, err = f.verify("u2", intent)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestVerifyAndCommitUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.VerifyAndCommit(context.Background(), VerifyInput{
		UserID:    "u1",
		OrderID:   "order_nope",
		PaymentID: "pay_1",
		Signature: "sig:order_nope|pay_1",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)
	b, err := f.verify("u1", intent)
	require.NoError(t, err)
	require.Equal(t, 1, f.slots.reserved("s1"))

	cancelled, err := f.svc.Cancel(context.Background(), b.ID, "u1", "scheduling conflict")
	require.NoError(t, err)

	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
	assert.Equal(t, "student", cancelled.CancelledBy)
	assert.Equal(t, "scheduling conflict", cancelled.CancelReason)
	require.NotNil(t, cancelled.CancelledAt)
	assert.Equal(t, 0, f.slots.reserved("s1"))
}

func TestCancelBookingByMentor(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)
	b, err := f.verify("u1", intent)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), b.ID, "m1", "")
	require.NoError(t, err)
	assert.Equal(t, "mentor", cancelled.CancelledBy)
}

func TestCancelBookingNotParty(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)
	b, err := f.verify("u1", intent)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), b.ID, "stranger", "")
	assert.ErrorIs(t, err, booking.ErrNotParty)
	assert.Equal(t, 1, f.slots.reserved("s1"))
}

func TestCancelBookingWrongStatus(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)
	b, err := f.verify("u1", intent)
	require.NoError(t, err)

	require.NoError(t, f.bookings.Transition(context.Background(), b.ID, booking.StatusScheduled, booking.StatusCompleted))

	_, err = f.svc.Cancel(context.Background(), b.ID, "u1", "")
	assert.ErrorIs(t, err, booking.ErrNotCancellable)
}

func TestSweeperReleasesExpiredHolds(t *testing.T) {
	f := newFixture(t)

	intent, err := f.request("u1")
	require.NoError(t, err)
	require.Equal(t, 1, f.slots.reserved("s1"))

	f.now = intent.ExpiresAt.Add(time.Second)

	sweeper := NewSweeper(f.intents, time.Minute, zap.NewNop())
	sweeper.now = func() time.Time { return f.now }
	sweeper.Sweep(context.Background())

	stored, err := f.intents.GetByID(context.Background(), intent.ID)
	require.NoError(t, err)
	assert.Equal(t, IntentExpired, stored.Status)
	assert.Equal(t, 0, f.slots.reserved("s1"))

	// An expired hold can no longer settle.
	_, err = f.verify("u1", intent)
	assert.ErrorIs(t, err, ErrHoldExpired)
}
