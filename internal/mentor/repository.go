package mentor

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Mentor, error)
	List(ctx context.Context, filter Filter) ([]*Mentor, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Mentor, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "name", "email", "kind", "session_price", "is_active",
		"created_at", "updated_at",
	).
		From("public.mentors").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get mentor query failed: %w", err)
	}

	var m Mentor
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&m.ID, &m.Name, &m.Email, &m.Kind, &m.SessionPrice, &m.IsActive,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get mentor failed: %w", err)
	}
	return &m, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Mentor, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "name", "email", "kind", "session_price", "is_active",
		"created_at", "updated_at",
		"count(*) OVER() as total_count",
	).
		From("public.mentors").
		Where(squirrel.Eq{"is_active": true})

	if filter.Kind != "" {
		query = query.Where(squirrel.Eq{"kind": filter.Kind})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	query = query.OrderBy("name ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list mentors query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list mentors failed: %w", err)
	}
	defer rows.Close()

	var mentors []*Mentor
	var total int

	for rows.Next() {
		var m Mentor
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Email, &m.Kind, &m.SessionPrice, &m.IsActive,
			&m.CreatedAt, &m.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan mentor failed: %w", err)
		}
		mentors = append(mentors, &m)
	}

	return mentors, total, nil
}
