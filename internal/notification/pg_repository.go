package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func newPgRepositoryWithQuerier(q querier) *PgRepository {
	return &PgRepository{pool: q}
}

const notificationColumns = `id, appointment_id, recipient_id, kind, message, scheduled_for, sent_at, claimed_at, last_error, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID,
		&r.AppointmentID,
		&r.RecipientID,
		&r.Kind,
		&r.Message,
		&r.ScheduledFor,
		&r.SentAt,
		&r.ClaimedAt,
		&r.LastError,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (r *PgRepository) Create(ctx context.Context, rec Record) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, appointment_id, recipient_id, kind, message, scheduled_for, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+notificationColumns+`
	`, rec.ID, rec.AppointmentID, rec.RecipientID, rec.Kind, rec.Message, rec.ScheduledFor, rec.SentAt)

	return scanRecord(row)
}

// The claim is a single statement so two workers sweeping at once split
// the due set instead of double-delivering. SKIP LOCKED keeps a slow
// competitor from blocking the batch.
func (r *PgRepository) ClaimDueReminders(ctx context.Context, now time.Time, leadTime, claimTTL time.Duration, limit int) ([]Record, error) {
	until := now.Add(leadTime)
	staleBefore := now.Add(-claimTTL)

	rows, err := r.pool.Query(ctx, `
		UPDATE notifications
		SET claimed_at = $1
		WHERE id IN (
			SELECT n.id
			FROM notifications n
			JOIN appointments a ON a.id = n.appointment_id
			WHERE n.kind = 'reminder'
			  AND n.sent_at IS NULL
			  AND n.scheduled_for <= $1
			  AND a.status <> 'cancelled'
			  AND a.start_at > $1
			  AND a.start_at < $2
			  AND (n.claimed_at IS NULL OR n.claimed_at < $3)
			ORDER BY n.scheduled_for
			LIMIT $4
			FOR UPDATE OF n SKIP LOCKED
		)
		RETURNING `+notificationColumns+`
	`, now, until, staleBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *PgRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET sent_at = $2,
		    claimed_at = NULL,
		    last_error = NULL
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET last_error = $2,
		    claimed_at = NULL
		WHERE id = $1
	`, id, cause)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) RescheduleReminder(ctx context.Context, appointmentID uuid.UUID, scheduledFor time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET scheduled_for = $2,
		    claimed_at = NULL
		WHERE appointment_id = $1
		  AND kind = 'reminder'
		  AND sent_at IS NULL
	`, appointmentID, scheduledFor)
	return err
}

func (r *PgRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var result []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
