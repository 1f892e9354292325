package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, rec Record) (*Record, error)

	// ClaimDueReminders atomically claims up to limit unsent reminders
	// whose scheduled_for has passed and whose appointment is still
	// live and starts within (now, now+leadTime). An appointment the
	// worker missed until it was over gets no reminder. A claim older
	// than now-claimTTL counts as stale and may be re-claimed.
	// Concurrent sweepers never receive the same row.
	ClaimDueReminders(ctx context.Context, now time.Time, leadTime, claimTTL time.Duration, limit int) ([]Record, error)

	// MarkSent finalizes a delivered record and clears its claim.
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error

	// MarkFailed records the delivery error and releases the claim so
	// a later sweep retries the record.
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error

	// RescheduleReminder moves the unsent reminder of an appointment
	// to a new fire instant. A no-op when the reminder is already sent.
	RescheduleReminder(ctx context.Context, appointmentID uuid.UUID, scheduledFor time.Time) error

	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]Record, error)
}
