package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lotusmind/session-booking-backend/internal/booking"
	"github.com/lotusmind/session-booking-backend/internal/slot"
)

// errAlreadyCommitted marks a replayed commit; the service resolves it to
// the existing booking instead of surfacing an error.
var errAlreadyCommitted = errors.New("reservation already committed")

type Repository interface {
	Create(ctx context.Context, intent *Intent) error
	GetByID(ctx context.Context, id string) (*Intent, error)
	GetByOrderID(ctx context.Context, orderID string) (*Intent, error)

	// HasPendingForSlot reports whether the user already holds a live
	// PENDING intent on the slot.
	HasPendingForSlot(ctx context.Context, userID, slotID string, now time.Time) (bool, error)

	// Fail flips a PENDING intent to FAILED. The boolean reports whether
	// this call won the flip; only the winner may release the capacity
	// unit, which keeps the release exactly-once.
	Fail(ctx context.Context, id string) (bool, error)

	// Commit atomically marks the intent COMMITTED and inserts the
	// booking. Either both land or neither does.
	Commit(ctx context.Context, intentID, paymentID string, b *booking.Booking) error

	// Cancel atomically cancels a SCHEDULED booking and returns its
	// capacity unit to the slot.
	Cancel(ctx context.Context, bookingID, slotID, cancelledBy, reason string, at time.Time) error

	// ExpireDue marks overdue PENDING intents EXPIRED and returns their
	// capacity units, all in one transaction. Returns how many expired.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type pgxRepository struct {
	pool     *pgxpool.Pool
	bookings booking.Repository
	slots    slot.Repository
}

func NewPgxRepository(pool *pgxpool.Pool, bookings booking.Repository, slots slot.Repository) Repository {
	return &pgxRepository{pool: pool, bookings: bookings, slots: slots}
}

var intentColumns = []string{
	"id", "user_id", "user_email", "slot_id", "mentor_id", "status",
	"amount", "currency", "order_id", "payment_id", "notes",
	"expires_at", "created_at", "updated_at",
}

func scanIntent(row pgx.Row, i *Intent) error {
	return row.Scan(
		&i.ID, &i.UserID, &i.UserEmail, &i.SlotID, &i.MentorID, &i.Status,
		&i.Amount, &i.Currency, &i.OrderID, &i.PaymentID, &i.Notes,
		&i.ExpiresAt, &i.CreatedAt, &i.UpdatedAt,
	)
}

func (r *pgxRepository) Create(ctx context.Context, intent *Intent) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.reservation_intents").
		Columns(
			"user_id", "user_email", "slot_id", "mentor_id", "status",
			"amount", "currency", "order_id", "notes", "expires_at",
		).
		Values(
			intent.UserID, intent.UserEmail, intent.SlotID, intent.MentorID, intent.Status,
			intent.Amount, intent.Currency, intent.OrderID, intent.Notes, intent.ExpiresAt,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create intent query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).
		Scan(&intent.ID, &intent.CreatedAt, &intent.UpdatedAt); err != nil {
		return fmt.Errorf("create intent failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Intent, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *pgxRepository) GetByOrderID(ctx context.Context, orderID string) (*Intent, error) {
	return r.getOne(ctx, squirrel.Eq{"order_id": orderID})
}

func (r *pgxRepository) getOne(ctx context.Context, where squirrel.Eq) (*Intent, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(intentColumns...).
		From("public.reservation_intents").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get intent query failed: %w", err)
	}

	var i Intent
	if err := scanIntent(r.pool.QueryRow(ctx, query, args...), &i); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get intent failed: %w", err)
	}
	return &i, nil
}

func (r *pgxRepository) HasPendingForSlot(ctx context.Context, userID, slotID string, now time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM public.reservation_intents
			WHERE user_id = $1 AND slot_id = $2 AND status = $3 AND expires_at > $4
		)`,
		userID, slotID, IntentPending, now,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pending intent check failed: %w", err)
	}
	return exists, nil
}

func (r *pgxRepository) Fail(ctx context.Context, id string) (bool, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE public.reservation_intents
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, IntentFailed, IntentPending,
	)
	if err != nil {
		return false, fmt.Errorf("fail intent failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) Commit(ctx context.Context, intentID, paymentID string, b *booking.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin commit tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, `
		UPDATE public.reservation_intents
		SET status = $2, payment_id = $3, updated_at = now()
		WHERE id = $1 AND status = $4 AND expires_at > now()`,
		intentID, IntentCommitted, paymentID, IntentPending,
	)
	if err != nil {
		return fmt.Errorf("commit intent failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.resolveStaleCommit(ctx, intentID)
	}

	if err := r.bookings.CreateTx(ctx, tx, b); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) resolveStaleCommit(ctx context.Context, intentID string) error {
	intent, err := r.GetByID(ctx, intentID)
	if err != nil {
		return err
	}
	if intent.Status == IntentCommitted {
		return errAlreadyCommitted
	}
	return ErrHoldExpired
}

func (r *pgxRepository) Cancel(ctx context.Context, bookingID, slotID, cancelledBy, reason string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cancel tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.bookings.CancelTx(ctx, tx, bookingID, cancelledBy, reason, at); err != nil {
		return err
	}
	if err := r.slots.ReleaseCapacityTx(ctx, tx, slotID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cancel tx failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin expire tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		UPDATE public.reservation_intents
		SET status = $1, updated_at = now()
		WHERE status = $2 AND expires_at <= $3
		RETURNING slot_id`,
		IntentExpired, IntentPending, now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire intents failed: %w", err)
	}

	var slotIDs []string
	for rows.Next() {
		var slotID string
		if err := rows.Scan(&slotID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan expired intent failed: %w", err)
		}
		slotIDs = append(slotIDs, slotID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read expired intents failed: %w", err)
	}

	// One release per expired intent, not per distinct slot: several
	// holds on the same slot each own a unit.
	for _, slotID := range slotIDs {
		if err := r.slots.ReleaseCapacityTx(ctx, tx, slotID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("expire tx failed: %w", err)
	}
	return int64(len(slotIDs)), nil
}
