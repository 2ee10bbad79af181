package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, slots []*Slot) error
	GetByID(ctx context.Context, id string) (*Slot, error)
	ListAvailable(ctx context.Context, filter Filter) ([]*Slot, int, error)
	ListByMentor(ctx context.Context, mentorID string, page, pageSize int) ([]*Slot, int, error)
	Update(ctx context.Context, s *Slot) error
	Delete(ctx context.Context, id string) error

	// ReserveCapacity consumes one capacity unit with a single conditional
	// update. It is the only way current_reserved moves up; two concurrent
	// calls against the last seat resolve to one success and one
	// ErrFullyBooked.
	ReserveCapacity(ctx context.Context, id string) error

	// ReleaseCapacity returns one capacity unit, floored at zero.
	ReleaseCapacity(ctx context.Context, id string) error

	// ReleaseCapacityTx is ReleaseCapacity inside a caller-owned
	// transaction, so a booking cancel and its capacity return commit
	// together.
	ReleaseCapacityTx(ctx context.Context, tx pgx.Tx, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var slotColumns = []string{
	"s.id", "s.mentor_id", "m.name", "s.start_time", "s.end_time",
	"s.session_kind", "s.max_capacity", "s.current_reserved", "s.is_active",
	"s.price", "s.session_link", "s.is_recurring", "s.recurring_days",
	"s.notes", "s.created_at", "s.updated_at",
}

func scanSlot(row pgx.Row, s *Slot, extra ...any) error {
	dest := []any{
		&s.ID, &s.MentorID, &s.MentorName, &s.StartTime, &s.EndTime,
		&s.Kind, &s.MaxCapacity, &s.CurrentReserved, &s.IsActive,
		&s.Price, &s.SessionLink, &s.IsRecurring, &s.RecurringDays,
		&s.Notes, &s.CreatedAt, &s.UpdatedAt,
	}
	dest = append(dest, extra...)
	return row.Scan(dest...)
}

func (r *pgxRepository) Create(ctx context.Context, slots []*Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create slots failed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range slots {
		query, args, err := psql.Insert("public.slots").
			Columns(
				"mentor_id", "start_time", "end_time", "session_kind",
				"max_capacity", "is_active", "price", "session_link",
				"is_recurring", "recurring_days", "notes",
			).
			Values(
				s.MentorID, s.StartTime, s.EndTime, s.Kind,
				s.MaxCapacity, s.IsActive, s.Price, s.SessionLink,
				s.IsRecurring, s.RecurringDays, s.Notes,
			).
			Suffix("RETURNING id, current_reserved, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build create slot query failed: %w", err)
		}

		if err := tx.QueryRow(ctx, query, args...).
			Scan(&s.ID, &s.CurrentReserved, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return fmt.Errorf("create slot failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create slots failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Slot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(slotColumns...).
		From("public.slots s").
		Join("public.mentors m ON s.mentor_id = m.id").
		Where(squirrel.Eq{"s.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get slot query failed: %w", err)
	}

	var s Slot
	if err := scanSlot(r.pool.QueryRow(ctx, query, args...), &s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot failed: %w", err)
	}
	return &s, nil
}

func (r *pgxRepository) ListAvailable(ctx context.Context, filter Filter) ([]*Slot, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	cols := append(append([]string{}, slotColumns...), "count(*) OVER() as total_count")
	query := psql.Select(cols...).
		From("public.slots s").
		Join("public.mentors m ON s.mentor_id = m.id").
		Where(squirrel.Eq{"s.is_active": true}).
		Where(squirrel.Gt{"s.start_time": time.Now().UTC()}).
		Where("s.current_reserved < s.max_capacity")

	if filter.MentorID != "" {
		query = query.Where(squirrel.Eq{"s.mentor_id": filter.MentorID})
	}
	if filter.Kind != "" {
		query = query.Where(squirrel.Eq{"s.session_kind": filter.Kind})
	}
	if filter.Date != nil {
		day := filter.Date.UTC().Truncate(24 * time.Hour)
		query = query.
			Where(squirrel.GtOrEq{"s.start_time": day}).
			Where(squirrel.Lt{"s.start_time": day.Add(24 * time.Hour)})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("s.start_time ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list available slots query failed: %w", err)
	}

	return r.querySlots(ctx, sql, args)
}

func (r *pgxRepository) ListByMentor(ctx context.Context, mentorID string, page, pageSize int) ([]*Slot, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	cols := append(append([]string{}, slotColumns...), "count(*) OVER() as total_count")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	sql, args, err := psql.Select(cols...).
		From("public.slots s").
		Join("public.mentors m ON s.mentor_id = m.id").
		Where(squirrel.Eq{"s.mentor_id": mentorID}).
		OrderBy("s.start_time ASC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list mentor slots query failed: %w", err)
	}

	return r.querySlots(ctx, sql, args)
}

func (r *pgxRepository) querySlots(ctx context.Context, sql string, args []any) ([]*Slot, int, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list slots failed: %w", err)
	}
	defer rows.Close()

	var slots []*Slot
	var total int

	for rows.Next() {
		var s Slot
		if err := scanSlot(rows, &s, &total); err != nil {
			return nil, 0, fmt.Errorf("scan slot failed: %w", err)
		}
		slots = append(slots, &s)
	}

	return slots, total, nil
}

// Update rewrites the mentor-editable fields. The current_reserved = 0 guard
// keeps edits away from slots that already carry bookings or holds.
func (r *pgxRepository) Update(ctx context.Context, s *Slot) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.slots").
		Set("start_time", s.StartTime).
		Set("end_time", s.EndTime).
		Set("session_kind", s.Kind).
		Set("max_capacity", s.MaxCapacity).
		Set("is_active", s.IsActive).
		Set("price", s.Price).
		Set("session_link", s.SessionLink).
		Set("notes", s.Notes).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": s.ID}).
		Where(squirrel.Eq{"current_reserved": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update slot query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrBooked(ctx, s.ID)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.slots").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"current_reserved": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete slot query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete slot failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrBooked(ctx, id)
	}
	return nil
}

func (r *pgxRepository) ReserveCapacity(ctx context.Context, id string) error {
	// One conditional update, not a read followed by a write. The WHERE
	// clause is the capacity check; under concurrency the row lock
	// serializes competing increments.
	ct, err := r.pool.Exec(ctx, `
		UPDATE public.slots
		SET current_reserved = current_reserved + 1, updated_at = now()
		WHERE id = $1 AND is_active AND current_reserved < max_capacity`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reserve capacity failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrFullyBooked
	}
	return nil
}

func (r *pgxRepository) ReleaseCapacity(ctx context.Context, id string) error {
	return r.release(ctx, r.pool, id)
}

func (r *pgxRepository) ReleaseCapacityTx(ctx context.Context, tx pgx.Tx, id string) error {
	return r.release(ctx, tx, id)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *pgxRepository) release(ctx context.Context, e execer, id string) error {
	ct, err := e.Exec(ctx, `
		UPDATE public.slots
		SET current_reserved = GREATEST(current_reserved - 1, 0), updated_at = now()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("release capacity failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// missingOrBooked resolves a zero-rows-affected guard update into the
// sentinel the caller should see.
func (r *pgxRepository) missingOrBooked(ctx context.Context, id string) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrSlotBooked
}
