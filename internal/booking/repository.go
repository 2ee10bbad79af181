package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names from migrations/0001_init.sql; Create maps their
// violations onto the matching conflict sentinels.
const (
	constraintOneActive = "idx_bookings_one_active_per_mentor"
	constraintOrderID   = "uq_bookings_order_id"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error

	// CreateTx inserts within a caller-owned transaction. The reservation
	// coordinator uses it to make intent commit and booking insert atomic.
	CreateTx(ctx context.Context, tx pgx.Tx, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	GetByOrderID(ctx context.Context, orderID string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)

	// HasActiveWith reports whether the student already holds a
	// SCHEDULED or ONGOING booking with the mentor.
	HasActiveWith(ctx context.Context, userID, mentorID string) (bool, error)

	// Transition performs a compare-and-swap status update. A stale
	// fromStatus fails with ErrWrongStatus, never silently.
	Transition(ctx context.Context, id string, from, to Status) error

	// CancelTx cancels a SCHEDULED booking within a caller-owned
	// transaction. ErrNotCancellable when the booking has moved on.
	CancelTx(ctx context.Context, tx pgx.Tx, id, cancelledBy, reason string, at time.Time) error

	// StartDue / CompleteDue advance bookings whose session window has
	// begun or elapsed. Both are bulk CAS updates used by the status worker.
	StartDue(ctx context.Context, now time.Time) (int64, error)
	CompleteDue(ctx context.Context, now time.Time) (int64, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var bookingColumns = []string{
	"b.id", "b.user_id", "b.mentor_id", "m.name", "b.slot_id",
	"b.session_kind", "b.scheduled_at", "b.duration_minutes",
	"b.status", "b.payment_status", "b.amount", "b.currency",
	"b.order_id", "b.payment_id", "b.notes",
	"b.cancel_reason", "b.cancelled_by", "b.cancelled_at",
	"b.created_at", "b.updated_at",
}

func scanBooking(row pgx.Row, b *Booking, extra ...any) error {
	dest := []any{
		&b.ID, &b.UserID, &b.MentorID, &b.MentorName, &b.SlotID,
		&b.Kind, &b.ScheduledAt, &b.DurationMinutes,
		&b.Status, &b.PaymentStatus, &b.Amount, &b.Currency,
		&b.OrderID, &b.PaymentID, &b.Notes,
		&b.CancelReason, &b.CancelledBy, &b.CancelledAt,
		&b.CreatedAt, &b.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	return r.insert(ctx, r.pool, b)
}

func (r *pgxRepository) CreateTx(ctx context.Context, tx pgx.Tx, b *Booking) error {
	return r.insert(ctx, tx, b)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *pgxRepository) insert(ctx context.Context, q queryRower, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"user_id", "mentor_id", "slot_id", "session_kind",
			"scheduled_at", "duration_minutes", "status", "payment_status",
			"amount", "currency", "order_id", "payment_id", "notes",
		).
		Values(
			b.UserID, b.MentorID, b.SlotID, b.Kind,
			b.ScheduledAt, b.DurationMinutes, b.Status, b.PaymentStatus,
			b.Amount, b.Currency, b.OrderID, b.PaymentID, b.Notes,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := q.QueryRow(ctx, query, args...).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapCreateError(err)
	}
	return nil
}

func mapCreateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case constraintOneActive:
			return ErrDuplicateActive
		case constraintOrderID:
			return ErrDuplicateOrder
		}
	}
	return fmt.Errorf("create booking failed: %w", err)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	return r.getOne(ctx, squirrel.Eq{"b.id": id})
}

func (r *pgxRepository) GetByOrderID(ctx context.Context, orderID string) (*Booking, error) {
	return r.getOne(ctx, squirrel.Eq{"b.order_id": orderID})
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Eq) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.mentors m ON b.mentor_id = m.id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	if err := scanBooking(r.pool.QueryRow(ctx, query, args...), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return &b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	cols := append(append([]string{}, bookingColumns...), "count(*) OVER() as total_count")
	query := psql.Select(cols...).
		From("public.bookings b").
		Join("public.mentors m ON b.mentor_id = m.id")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.MentorID != "" {
		query = query.Where(squirrel.Eq{"b.mentor_id": filter.MentorID})
	}
	if filter.SlotID != "" {
		query = query.Where(squirrel.Eq{"b.slot_id": filter.SlotID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("b.scheduled_at DESC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int

	for rows.Next() {
		var b Booking
		if err := scanBooking(rows, &b, &total); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, &b)
	}

	return bookings, total, nil
}

func (r *pgxRepository) HasActiveWith(ctx context.Context, userID, mentorID string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	sub, args, err := psql.Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"mentor_id": mentorID}).
		Where(squirrel.Eq{"status": []Status{StatusScheduled, StatusOngoing}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build active booking check failed: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("active booking check failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) Transition(ctx context.Context, id string, from, to Status) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE public.bookings
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("transition booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrWrongStatus
	}
	return nil
}

func (r *pgxRepository) CancelTx(ctx context.Context, tx pgx.Tx, id, cancelledBy, reason string, at time.Time) error {
	ct, err := tx.Exec(ctx, `
		UPDATE public.bookings
		SET status = $2, cancelled_by = $3, cancel_reason = $4,
		    cancelled_at = $5, updated_at = now()
		WHERE id = $1 AND status = $6`,
		id, StatusCancelled, cancelledBy, reason, at, StatusScheduled,
	)
	if err != nil {
		return fmt.Errorf("cancel booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotCancellable
	}
	return nil
}

func (r *pgxRepository) StartDue(ctx context.Context, now time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE public.bookings
		SET status = $1, updated_at = now()
		WHERE status = $2 AND scheduled_at <= $3`,
		StatusOngoing, StatusScheduled, now,
	)
	if err != nil {
		return 0, fmt.Errorf("start due bookings failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgxRepository) CompleteDue(ctx context.Context, now time.Time) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE public.bookings
		SET status = $1, updated_at = now()
		WHERE status = $2
		  AND scheduled_at + make_interval(mins => duration_minutes) <= $3`,
		StatusCompleted, StatusOngoing, now,
	)
	if err != nil {
		return 0, fmt.Errorf("complete due bookings failed: %w", err)
	}
	return ct.RowsAffected(), nil
}
