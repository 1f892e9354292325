package notification

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes what a notification is about.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
	KindCancellation Kind = "cancellation"
	KindReschedule   Kind = "reschedule"
)

// Record is one notification owed to a recipient. Immediate kinds are
// stored already sent; reminders carry a ScheduledFor instant and are
// delivered later by the sweep.
type Record struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	RecipientID   uuid.UUID
	Kind          Kind
	Message       string

	// ScheduledFor is set for reminders only.
	ScheduledFor *time.Time
	// SentAt is nil until the record has been delivered.
	SentAt *time.Time
	// ClaimedAt marks an in-flight delivery attempt by some worker.
	ClaimedAt *time.Time
	// LastError keeps the most recent delivery failure.
	LastError *string

	CreatedAt time.Time
}

// Pending reports whether the record still awaits delivery.
func (r *Record) Pending() bool {
	return r.SentAt == nil
}
