package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgExclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanDefinition(row pgx.Row) (*Definition, error) {
	var d Definition
	var day, start, end, granularity int

	err := row.Scan(
		&d.ID,
		&d.ProviderID,
		&day,
		&start,
		&end,
		&granularity,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDefinitionNotFound
		}
		return nil, err
	}

	d.DayOfWeek = time.Weekday(day)
	d.Start = TimeOfDay(start)
	d.End = TimeOfDay(end)
	d.Granularity = granularity
	return &d, nil
}

// mapOverlapViolation translates the exclusion-constraint failure raised
// when two definitions race past the application-level check.
func mapOverlapViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
		return &OverlapError{}
	}
	return err
}

func (r *PgRepository) CreateDefinition(ctx context.Context, def Definition) (*Definition, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO slot_definitions (id, provider_id, day_of_week, start_minute, end_minute, granularity_minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING id, provider_id, day_of_week, start_minute, end_minute, granularity_minutes, created_at, updated_at
	`, def.ID, def.ProviderID, int(def.DayOfWeek), int(def.Start), int(def.End), def.Granularity)

	created, err := scanDefinition(row)
	if err != nil {
		return nil, mapOverlapViolation(err)
	}
	return created, nil
}

func (r *PgRepository) UpdateDefinition(ctx context.Context, def Definition) (*Definition, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slot_definitions
		SET day_of_week = $2,
		    start_minute = $3,
		    end_minute = $4,
		    granularity_minutes = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, provider_id, day_of_week, start_minute, end_minute, granularity_minutes, created_at, updated_at
	`, def.ID, int(def.DayOfWeek), int(def.Start), int(def.End), def.Granularity)

	updated, err := scanDefinition(row)
	if err != nil {
		return nil, mapOverlapViolation(err)
	}
	return updated, nil
}

func (r *PgRepository) DeleteDefinition(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slot_definitions
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

func (r *PgRepository) GetDefinitionByID(ctx context.Context, id uuid.UUID) (*Definition, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, day_of_week, start_minute, end_minute, granularity_minutes, created_at, updated_at
		FROM slot_definitions
		WHERE id = $1
	`, id)
	return scanDefinition(row)
}

func (r *PgRepository) ListDefinitionsForProvider(ctx context.Context, providerID uuid.UUID) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, day_of_week, start_minute, end_minute, granularity_minutes, created_at, updated_at
		FROM slot_definitions
		WHERE provider_id = $1
		ORDER BY day_of_week, start_minute
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDefinitions(rows)
}

func (r *PgRepository) ListDefinitionsForDay(ctx context.Context, providerID uuid.UUID, day time.Weekday) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, day_of_week, start_minute, end_minute, granularity_minutes, created_at, updated_at
		FROM slot_definitions
		WHERE provider_id = $1 AND day_of_week = $2
		ORDER BY start_minute
	`, providerID, int(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDefinitions(rows)
}

func collectDefinitions(rows pgx.Rows) ([]Definition, error) {
	var result []Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
